package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"nomen/internal/user/migrate"
	"nomen/internal/user/models"
	"nomen/internal/user/service"
	"nomen/internal/user/store"
)

type HandlerSuite struct {
	suite.Suite
	router http.Handler
	store  *store.InMemory
}

func (s *HandlerSuite) SetupTest() {
	s.store = store.NewInMemory()
	svc := service.New(s.store, migrate.New(s.store))
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	h := New(svc, logger)
	r := chi.NewRouter()
	h.Register(r)
	s.router = r
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) do(method, target string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) decode(rec *httptest.ResponseRecorder) models.Representation {
	var rep models.Representation
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&rep))
	return rep
}

func (s *HandlerSuite) TestCreateAndGet() {
	rec := s.do(http.MethodPost, "/user/jdoe", `{"firstName":"Jane","lastName":"Doe"}`)
	s.Equal(http.StatusCreated, rec.Code)
	s.Equal("/user/jdoe", rec.Header().Get("Location"))

	rep := s.decode(rec)
	s.Require().NotNil(rep.FirstName)
	s.Equal("Jane", *rep.FirstName)

	rec = s.do(http.MethodGet, "/user/jdoe", "")
	s.Equal(http.StatusOK, rec.Code)
	rep = s.decode(rec)
	s.Require().NotNil(rep.Username)
	s.Equal("jdoe", *rep.Username)
	s.Require().NotNil(rep.LastName)
	s.Equal("Doe", *rep.LastName)
	s.Nil(rep.FullName, "latest shape omits fullName")
}

func (s *HandlerSuite) TestCreateLegacyShape() {
	rec := s.do(http.MethodPost, "/user/jdoe", `{"fullName":"Jane Doe"}`)
	s.Equal(http.StatusCreated, rec.Code)

	rep := s.decode(rec)
	s.Require().NotNil(rep.FullName)
	s.Equal("Jane Doe", *rep.FullName)
	s.Nil(rep.FirstName, "generation 1 response carries only the full name")
}

func (s *HandlerSuite) TestCreateUsernameFormat() {
	for _, username := range []string{"ab", "a1", "1abc", "_abc", "a-bc", "thisusernameiswaytoolong"} {
		rec := s.do(http.MethodPost, "/user/"+username, `{"firstName":"Jane","lastName":"Doe"}`)
		s.Equal(http.StatusForbidden, rec.Code, "username %q", username)
	}

	rec := s.do(http.MethodPost, "/user/abc", `{"firstName":"Jane","lastName":"Doe"}`)
	s.Equal(http.StatusCreated, rec.Code)
}

func (s *HandlerSuite) TestCreateTakenUsername() {
	s.Equal(http.StatusCreated, s.do(http.MethodPost, "/user/jdoe", `{"firstName":"Jane","lastName":"Doe"}`).Code)

	rec := s.do(http.MethodPost, "/user/jdoe", `{"firstName":"John","lastName":"Doe"}`)
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *HandlerSuite) TestCreateInvalidBodies() {
	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/user/jdoe", `{"firstName":"Jane"}`).Code,
		"missing lastName")
	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/user/jdoe", `{"fullName":"Jane"}`).Code,
		"fullName without interior whitespace")
	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/user/jdoe", `{}`).Code,
		"empty body shape")
	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/user/jdoe", `not json`).Code)
}

func (s *HandlerSuite) TestCreateUsernameEchoMismatch() {
	rec := s.do(http.MethodPost, "/user/jdoe", `{"username":"other","firstName":"Jane","lastName":"Doe"}`)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestGetAbsent() {
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/user/ghost", "").Code)
}

func (s *HandlerSuite) TestGetSupersededVersionRedirects() {
	s.Equal(http.StatusCreated, s.do(http.MethodPost, "/user/jdoe", `{"firstName":"Jane","lastName":"Doe"}`).Code)

	rec := s.do(http.MethodGet, "/user/jdoe?version=1", "")
	s.Equal(http.StatusMovedPermanently, rec.Code)
	s.Equal("/user/jdoe?version=2", rec.Header().Get("Location"))

	// the result is still relayed, under the latest generation
	rep := s.decode(rec)
	s.Require().NotNil(rep.FirstName)
	s.Equal("Jane", *rep.FirstName)
}

func (s *HandlerSuite) TestCreateSupersededVersionRedirectsWithoutSideEffect() {
	rec := s.do(http.MethodPost, "/user/jdoe?version=1", `{"fullName":"Jane Doe"}`)
	s.Equal(http.StatusPermanentRedirect, rec.Code)
	s.Equal("/user/jdoe?version=2", rec.Header().Get("Location"))

	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/user/jdoe", "").Code, "nothing was created")
}

func (s *HandlerSuite) TestUpdatePartial() {
	s.Equal(http.StatusCreated, s.do(http.MethodPost, "/user/jdoe", `{"firstName":"Jane","lastName":"Doe"}`).Code)

	rec := s.do(http.MethodPut, "/user/jdoe", `{"firstName":"Janet"}`)
	s.Equal(http.StatusOK, rec.Code)
	rep := s.decode(rec)
	s.Equal("Janet", *rep.FirstName)
	s.Equal("Doe", *rep.LastName)
}

func (s *HandlerSuite) TestUpdateSupersededVersionRedirectsWithResult() {
	s.Equal(http.StatusCreated, s.do(http.MethodPost, "/user/jdoe", `{"firstName":"Jane","lastName":"Doe"}`).Code)

	rec := s.do(http.MethodPut, "/user/jdoe?version=1", `{"fullName":"Janet Doe"}`)
	s.Equal(http.StatusMovedPermanently, rec.Code)
	s.Equal("/user/jdoe?version=2", rec.Header().Get("Location"))
	rep := s.decode(rec)
	s.Require().NotNil(rep.FirstName)
	s.Equal("Janet", *rep.FirstName)
}

func (s *HandlerSuite) TestUpdateAbsent() {
	s.Equal(http.StatusNotFound, s.do(http.MethodPut, "/user/ghost", `{"firstName":"Jane"}`).Code)
}

func (s *HandlerSuite) TestUpdateInvalidBody() {
	s.Equal(http.StatusCreated, s.do(http.MethodPost, "/user/jdoe", `{"firstName":"Jane","lastName":"Doe"}`).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodPut, "/user/jdoe", `{}`).Code)
}

func (s *HandlerSuite) TestDeleteReturnsSnapshot() {
	s.Equal(http.StatusCreated, s.do(http.MethodPost, "/user/jdoe", `{"firstName":"Jane","lastName":"Doe"}`).Code)

	rec := s.do(http.MethodDelete, "/user/jdoe", "")
	s.Equal(http.StatusOK, rec.Code)
	rep := s.decode(rec)
	s.Require().NotNil(rep.FirstName)
	s.Equal("Jane", *rep.FirstName)

	s.Equal(http.StatusNotFound, s.do(http.MethodDelete, "/user/jdoe", "").Code)
}

func (s *HandlerSuite) TestIntegrityFaultReplacesResponse() {
	s.Equal(http.StatusCreated, s.do(http.MethodPost, "/user/jdoe", `{"firstName":"Jane","lastName":"Doe"}`).Code)

	stored, err := s.store.FindByUsername(context.Background(), "jdoe")
	s.Require().NoError(err)
	corrupted := *stored.Name
	corrupted.FirstName = "Janet"
	s.Require().NoError(s.store.SaveName(context.Background(), &corrupted))

	rec := s.do(http.MethodGet, "/user/jdoe", "")
	s.Equal(http.StatusInternalServerError, rec.Code)

	var payload map[string]string
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&payload))
	s.Equal("integrity_fault", payload["error"])
	s.Equal("inconsistent data", payload["error_description"])
}

func (s *HandlerSuite) TestMigrateSweep() {
	legacy := &models.User{ID: uuid.New(), Username: "legacy", FullName: "Jane Doe", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	_, err := s.store.Save(context.Background(), legacy)
	s.Require().NoError(err)

	rec := s.do(http.MethodPost, "/admin/migrate", "")
	s.Equal(http.StatusOK, rec.Code)

	var migrated []models.Representation
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&migrated))
	s.Require().Len(migrated, 1)
	s.NotNil(migrated[0].FullName)
	s.NotNil(migrated[0].FirstName)
	s.NotNil(migrated[0].LastName)
}

func (s *HandlerSuite) TestCreateOversizedName() {
	long := strings.Repeat("a", 300)
	rec := s.do(http.MethodPost, "/user/jdoe", `{"firstName":"`+long+`","lastName":"Doe"}`)
	s.Equal(http.StatusBadRequest, rec.Code)

	// Nothing was stored.
	rec = s.do(http.MethodGet, "/user/jdoe", "")
	s.Equal(http.StatusNotFound, rec.Code)
}

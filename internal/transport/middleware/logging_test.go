package middleware_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/frahmantamala/credential-vault/internal/transport/middleware"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestMiddleware(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Middleware Suite")
}

var _ = Describe("LoggingMiddleware", func() {
	var (
		logOutput *bytes.Buffer
		router    *chi.Mux
	)

	BeforeEach(func() {
		logOutput = &bytes.Buffer{}
		logger := slog.New(slog.NewJSONHandler(logOutput, nil))

		router = chi.NewRouter()
		router.Use(chiMiddleware.RequestID)
		router.Use(middleware.LoggingMiddleware(logger))
		router.Post("/credentials", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"secret":"should-never-be-logged"}`))
		})
	})

	It("logs a non-empty request id on request and response lines", func() {
		req := httptest.NewRequest(http.MethodPost, "/credentials", strings.NewReader(`{"login":"svc-user"}`))
		router.ServeHTTP(httptest.NewRecorder(), req)

		lines := strings.Split(strings.TrimSpace(logOutput.String()), "\n")
		Expect(len(lines)).To(BeNumerically(">=", 2))
		for _, line := range lines {
			Expect(line).To(ContainSubstring(`"request_id"`))
			Expect(line).NotTo(ContainSubstring(`"request_id":""`))
		}
	})

	It("masks sensitive request fields", func() {
		body := `{"login":"svc-user","secret":"hunter2","password":"p4ss"}`
		req := httptest.NewRequest(http.MethodPost, "/credentials", strings.NewReader(body))
		router.ServeHTTP(httptest.NewRecorder(), req)

		logged := logOutput.String()
		Expect(logged).To(ContainSubstring("svc-user"))
		Expect(logged).To(ContainSubstring("[FILTERED]"))
		Expect(logged).NotTo(ContainSubstring("hunter2"))
		Expect(logged).NotTo(ContainSubstring("p4ss"))
	})

	It("never logs the response body", func() {
		req := httptest.NewRequest(http.MethodPost, "/credentials", strings.NewReader(`{}`))
		router.ServeHTTP(httptest.NewRecorder(), req)

		Expect(logOutput.String()).NotTo(ContainSubstring("should-never-be-logged"))
	})
})

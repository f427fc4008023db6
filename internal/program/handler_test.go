package program_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	programDatamodel "github.com/frahmantamala/learning-platform/internal/core/datamodel/program"
	"github.com/frahmantamala/learning-platform/internal/program"
	programPostgres "github.com/frahmantamala/learning-platform/internal/program/postgres"
	"github.com/frahmantamala/learning-platform/internal/transport"
)

var _ = Describe("Program Handler Integration", func() {
	var (
		db      *gorm.DB
		repo    *programPostgres.ProgramRepository
		router  *chi.Mux
		slogger *slog.Logger
		paid    *programDatamodel.Program
	)

	BeforeEach(func() {
		var err error
		slogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.AutoMigrate(&programDatamodel.Program{})).To(Succeed())

		repo = programPostgres.NewProgramRepository(db)
		service := program.NewService(repo, slogger)
		handler := program.NewHandler(transport.NewBaseHandler(slogger), service)

		router = chi.NewRouter()
		router.Get("/programs", handler.GetPrograms)
		router.Get("/programs/{programID}", handler.GetProgram)

		ctx := context.Background()
		paid = &programDatamodel.Program{Slug: "go-backend", Title: "Go Backend", Price: decimal.RequireFromString("999.00"), Currency: "INR", IsActive: true}
		Expect(repo.Create(ctx, paid)).To(Succeed())
		Expect(repo.Create(ctx, &programDatamodel.Program{Slug: "intro", Title: "Intro", Price: decimal.Zero, Currency: "INR", IsActive: true})).To(Succeed())

		retired := &programDatamodel.Program{Slug: "legacy", Title: "Legacy", Price: decimal.RequireFromString("10"), Currency: "INR", IsActive: true}
		Expect(repo.Create(ctx, retired)).To(Succeed())
		Expect(db.Model(retired).Update("is_active", false).Error).To(Succeed())
	})

	It("should list active programs only", func() {
		req := httptest.NewRequest(http.MethodGet, "/programs", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var response program.ProgramsResponse
		Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())
		Expect(response.Programs).To(HaveLen(2))
		Expect(response.Programs[0].Title).To(Equal("Go Backend"))
		Expect(response.Programs[0].Price).To(Equal("999.00"))
		Expect(response.Programs[0].Purchasable).To(BeTrue())
		Expect(response.Programs[1].Purchasable).To(BeFalse())
	})

	It("should return a single program", func() {
		req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/programs/%d", paid.ID), nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var response program.ProgramResponse
		Expect(json.NewDecoder(w.Body).Decode(&response)).To(Succeed())
		Expect(response.Slug).To(Equal("go-backend"))
	})

	It("should return 404 for unknown programs", func() {
		req := httptest.NewRequest(http.MethodGet, "/programs/9999", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("should return 400 for malformed ids", func() {
		req := httptest.NewRequest(http.MethodGet, "/programs/abc", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
})

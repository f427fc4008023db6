package enrollment_test

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

	"github.com/frahmantamala/learning-platform/internal"
	"github.com/frahmantamala/learning-platform/internal/cache"
	enrollmentDatamodel "github.com/frahmantamala/learning-platform/internal/core/datamodel/enrollment"
	programDatamodel "github.com/frahmantamala/learning-platform/internal/core/datamodel/program"
	"github.com/frahmantamala/learning-platform/internal/enrollment"
	enrollmentPostgres "github.com/frahmantamala/learning-platform/internal/enrollment/postgres"
	programPostgres "github.com/frahmantamala/learning-platform/internal/program/postgres"
	"github.com/frahmantamala/learning-platform/internal/transport"
)

var _ = Describe("Enrollment Handler Integration", func() {
	var (
		db       *gorm.DB
		repo     *enrollmentPostgres.EnrollmentRepository
		store    *cache.MemoryCache
		router   *chi.Mux
		course   *programDatamodel.Program
		retired  *programDatamodel.Program
		learner  internal.Learner
		asLogged func(*http.Request) *http.Request
	)

	BeforeEach(func() {
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.AutoMigrate(&programDatamodel.Program{}, &enrollmentDatamodel.Enrollment{})).To(Succeed())

		programs := programPostgres.NewProgramRepository(db)
		repo = enrollmentPostgres.NewEnrollmentRepository(db)
		store = cache.NewMemoryCache()
		service := enrollment.NewService(repo, programs, store, slogger)
		handler := enrollment.NewHandler(transport.NewBaseHandler(slogger), service)

		router = chi.NewRouter()
		router.Post("/programs/{programID}/enrollments", handler.Enroll)
		router.Get("/enrollments", handler.ListMine)

		ctx := context.Background()
		course = &programDatamodel.Program{Slug: "go", Title: "Go", Price: decimal.RequireFromString("999"), Currency: "INR", IsActive: true}
		Expect(programs.Create(ctx, course)).To(Succeed())
		retired = &programDatamodel.Program{Slug: "old", Title: "Old", Price: decimal.RequireFromString("10"), Currency: "INR", IsActive: true}
		Expect(programs.Create(ctx, retired)).To(Succeed())
		Expect(db.Model(retired).Update("is_active", false).Error).To(Succeed())

		learner = internal.Learner{ID: 11, Email: "asha@example.com"}
		asLogged = func(r *http.Request) *http.Request {
			return r.WithContext(internal.ContextWithLearner(r.Context(), learner))
		}
	})

	enroll := func(programID int64) *httptest.ResponseRecorder {
		req := asLogged(httptest.NewRequest(http.MethodPost, fmt.Sprintf("/programs/%d/enrollments", programID), nil))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	It("should create a FREE enrollment", func() {
		w := enroll(course.ID)

		Expect(w.Code).To(Equal(http.StatusCreated))
		var resp enrollment.EnrollmentResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Type).To(Equal(enrollmentDatamodel.TypeFree))
		Expect(resp.PaidAt).To(BeNil())
	})

	It("should keep a single enrollment per learner and program", func() {
		Expect(enroll(course.ID).Code).To(Equal(http.StatusCreated))
		Expect(enroll(course.ID).Code).To(Equal(http.StatusOK))

		var count int64
		Expect(db.Model(&enrollmentDatamodel.Enrollment{}).Where("learner_id = ? AND program_id = ?", learner.ID, course.ID).Count(&count).Error).To(Succeed())
		Expect(count).To(Equal(int64(1)))
	})

	It("should reject inactive programs", func() {
		Expect(enroll(retired.ID).Code).To(Equal(http.StatusUnprocessableEntity))
	})

	It("should return 404 for unknown programs", func() {
		Expect(enroll(4242).Code).To(Equal(http.StatusNotFound))
	})

	It("should list the learner's enrollments and refresh after a new one", func() {
		list := func() enrollment.EnrollmentsResponse {
			req := asLogged(httptest.NewRequest(http.MethodGet, "/enrollments", nil))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			Expect(w.Code).To(Equal(http.StatusOK))
			var resp enrollment.EnrollmentsResponse
			Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
			return resp
		}

		Expect(list().Enrollments).To(BeEmpty())

		Expect(enroll(course.ID).Code).To(Equal(http.StatusCreated))

		resp := list()
		Expect(resp.Enrollments).To(HaveLen(1))
		Expect(resp.Enrollments[0].ProgramID).To(Equal(course.ID))
	})

	It("should return 401 without a learner", func() {
		req := httptest.NewRequest(http.MethodGet, "/enrollments", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})
})

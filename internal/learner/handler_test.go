package learner_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/learning-platform/internal"
	"github.com/frahmantamala/learning-platform/internal/cache"
	learnerDatamodel "github.com/frahmantamala/learning-platform/internal/core/datamodel/learner"
	"github.com/frahmantamala/learning-platform/internal/learner"
	learnerPostgres "github.com/frahmantamala/learning-platform/internal/learner/postgres"
	"github.com/frahmantamala/learning-platform/internal/transport"
)

var _ = Describe("Learner Handler", func() {
	var (
		db      *gorm.DB
		repo    *learnerPostgres.LearnerRepository
		store   *cache.MemoryCache
		handler *learner.Handler
		asha    *learnerDatamodel.Learner
	)

	BeforeEach(func() {
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.AutoMigrate(&learnerDatamodel.Learner{})).To(Succeed())

		repo = learnerPostgres.NewLearnerRepository(db)
		store = cache.NewMemoryCache()
		handler = learner.NewHandler(transport.NewBaseHandler(slogger), learner.NewService(repo, store, slogger))

		asha = &learnerDatamodel.Learner{Email: "asha@example.com", Name: "Asha", PasswordHash: "x", IsActive: true}
		Expect(repo.Create(context.Background(), asha)).To(Succeed())
	})

	request := func(ctx context.Context) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/learners/me", nil).WithContext(ctx)
		w := httptest.NewRecorder()
		handler.GetCurrentLearner(w, req)
		return w
	}

	It("should return the authenticated learner's profile", func() {
		ctx := internal.ContextWithLearner(context.Background(), internal.Learner{ID: asha.ID, Email: asha.Email})

		w := request(ctx)

		Expect(w.Code).To(Equal(http.StatusOK))
		var profile learner.Profile
		Expect(json.NewDecoder(w.Body).Decode(&profile)).To(Succeed())
		Expect(profile.Email).To(Equal("asha@example.com"))
	})

	It("should serve the cached profile until it is invalidated", func() {
		ctx := internal.ContextWithLearner(context.Background(), internal.Learner{ID: asha.ID})
		Expect(request(ctx).Code).To(Equal(http.StatusOK))

		// Given the row changes underneath the cache
		Expect(db.Model(asha).Update("name", "Asha R").Error).To(Succeed())

		// Then the cached name is served
		var profile learner.Profile
		Expect(json.NewDecoder(request(ctx).Body).Decode(&profile)).To(Succeed())
		Expect(profile.Name).To(Equal("Asha"))

		// When the learner's views are invalidated
		Expect(store.Invalidate(ctx, cache.LearnerKeys(asha.ID)...)).To(Succeed())

		// Then the fresh row is served
		Expect(json.NewDecoder(request(ctx).Body).Decode(&profile)).To(Succeed())
		Expect(profile.Name).To(Equal("Asha R"))
	})

	It("should return 401 without an authenticated learner", func() {
		Expect(request(context.Background()).Code).To(Equal(http.StatusUnauthorized))
	})

	It("should return 404 for a learner that no longer exists", func() {
		ctx := internal.ContextWithLearner(context.Background(), internal.Learner{ID: 999})
		Expect(request(ctx).Code).To(Equal(http.StatusNotFound))
	})
})

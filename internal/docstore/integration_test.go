//go:build integration

package docstore_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	database "github.com/FACorreiaa/catalog-api/app/db"
	"github.com/FACorreiaa/catalog-api/internal/docstore"
)

func TestDocstoreIntegration(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Docstore PostgreSQL Integration Suite")
}

var (
	ctx       context.Context
	container testcontainers.Container
	pool      *pgxpool.Pool
	store     *docstore.PostgresStore
)

var _ = BeforeSuite(func() {
	ctx = context.Background()
	var err error
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("catalog_test"),
		postgres.WithUsername("catalog"),
		postgres.WithPassword("catalog"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	Expect(err).NotTo(HaveOccurred())
	container = pgContainer

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	Expect(err).NotTo(HaveOccurred())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	Expect(database.RunMigrations(connStr, logger)).To(Succeed())
	Expect(database.RunMigrations(connStr, logger)).To(Succeed(), "migrations are idempotent")

	pool, err = database.Init(ctx, connStr, logger)
	Expect(err).NotTo(HaveOccurred())
	Expect(database.WaitForDB(ctx, pool, logger)).To(Succeed())

	store = docstore.NewPostgresStore(pool)
})

var _ = AfterSuite(func() {
	if pool != nil {
		pool.Close()
	}
	if container != nil {
		_ = container.Terminate(ctx)
	}
})

var _ = Describe("PostgresStore", func() {
	BeforeEach(func() {
		_, err := pool.Exec(ctx, "TRUNCATE documents")
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("querying a collection", func() {
		BeforeEach(func() {
			for _, d := range []docstore.Document{
				{"name": "Acme Widgets", "manufacturer": "Acme Corp", "price": 10.5},
				{"name": "Globex", "manufacturer": "ACME Holdings"},
				{"name": "Initech", "manufacturer": "Initrode"},
				{"name": "100% Juice"},
			} {
				_, err := store.InsertOne(ctx, "brand", d)
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("matches name or manufacturer case-insensitively", func() {
			f := docstore.AnyOf(docstore.Contains("name", "acme"), docstore.Contains("manufacturer", "acme"))
			docs, err := store.FindMany(ctx, "brand", f, docstore.FindOptions{Exclude: []string{docstore.IDField}})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(2))
			Expect(docs[0]).To(HaveKeyWithValue("name", "Acme Widgets"))
			Expect(docs[0]).NotTo(HaveKey(docstore.IDField))

			n, err := store.Count(ctx, "brand", f)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeEquivalentTo(2))
		})

		It("treats LIKE metacharacters literally", func() {
			docs, err := store.FindMany(ctx, "brand", docstore.Where(docstore.Contains("name", "%")), docstore.FindOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0]).To(HaveKeyWithValue("name", "100% Juice"))
		})

		It("pages in insertion order", func() {
			docs, err := store.FindMany(ctx, "brand", docstore.Filter{}, docstore.FindOptions{Skip: 1, Limit: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(2))
			Expect(docs[0]).To(HaveKeyWithValue("name", "Globex"))
			Expect(docs[1]).To(HaveKeyWithValue("name", "Initech"))
		})
	})

	Describe("unique user fields", func() {
		It("rejects a second user with the same username or email", func() {
			_, err := store.InsertOne(ctx, "users", docstore.Document{"username": "alice", "email": "a@example.com"})
			Expect(err).NotTo(HaveOccurred())

			_, err = store.InsertOne(ctx, "users", docstore.Document{"username": "alice", "email": "x@example.com"})
			Expect(err).To(MatchError(docstore.ErrDuplicateKey))

			_, err = store.InsertOne(ctx, "users", docstore.Document{"username": "bob", "email": "a@example.com"})
			Expect(err).To(MatchError(docstore.ErrDuplicateKey))
		})
	})

	Describe("updating a document", func() {
		It("merges fields and reports matches", func() {
			_, err := store.InsertOne(ctx, "tickets", docstore.Document{"id": "t-1", "title": "Fibre down", "status": "open"})
			Expect(err).NotTo(HaveOccurred())

			matched, err := store.UpdateOne(ctx, "tickets", docstore.Where(docstore.Eq("id", "t-1")), docstore.Document{"status": "closed"})
			Expect(err).NotTo(HaveOccurred())
			Expect(matched).To(BeEquivalentTo(1))

			doc, err := store.FindOne(ctx, "tickets", docstore.Where(docstore.Eq("id", "t-1")))
			Expect(err).NotTo(HaveOccurred())
			Expect(doc).To(HaveKeyWithValue("status", "closed"))
			Expect(doc).To(HaveKeyWithValue("title", "Fibre down"))

			matched, err = store.UpdateOne(ctx, "tickets", docstore.Where(docstore.Eq("id", "nope")), docstore.Document{"status": "closed"})
			Expect(err).NotTo(HaveOccurred())
			Expect(matched).To(BeZero())

			_, err = store.FindOne(ctx, "tickets", docstore.Where(docstore.Eq("id", "nope")))
			Expect(err).To(MatchError(docstore.ErrNotFound))
		})
	})
})

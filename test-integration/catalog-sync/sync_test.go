//go:build integration

package integration

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opendata-sync/catalog-sync/cmd/catalog-sync/app"
	"github.com/opendata-sync/catalog-sync/internal/item"
	"github.com/opendata-sync/catalog-sync/internal/status"
	"github.com/opendata-sync/catalog-sync/internal/store"
	"github.com/opendata-sync/catalog-sync/test-integration/catalog-sync/helpers"
)

var _ = Describe("Catalog sync", Label("mongo"), func() {
	var (
		tempDir    string
		statusDir  string
		configFile string
		ckan       *helpers.FakeCKAN
		items      *store.MongoStore
	)

	runSync := func() *status.RunStats {
		cmd := app.NewRootCmd()
		cmd.SetArgs([]string{"sync", "--config", configFile})
		Expect(cmd.ExecuteContext(ctx)).To(Succeed())

		stats, err := status.NewFileStatusPersistence(statusDir).LoadStatus(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(stats).NotTo(BeNil())
		Expect(stats.Phase).To(Equal(status.SyncPhaseComplete))
		return stats
	}

	storedIDs := func() []string {
		ids, err := items.ListCKANIDs(ctx)
		Expect(err).NotTo(HaveOccurred())
		return ids
	}

	find := func(ckanID string) item.Item {
		it, err := items.Find(ctx, ckanID)
		Expect(err).NotTo(HaveOccurred())
		return it
	}

	setup := func(groupByPackage bool) {
		database := fmt.Sprintf("catalog_%d", time.Now().UnixNano())

		parsersDir := filepath.Join(tempDir, "parsers")
		Expect(os.MkdirAll(parsersDir, 0750)).To(Succeed())
		helpers.WriteCSVParser(parsersDir)

		configFile = helpers.WriteConfigYAML(tempDir, helpers.ConfigOptions{
			CatalogURL:     ckan.URL(),
			MongoURL:       mongoURL,
			Database:       database,
			StatusDir:      statusDir,
			ParsersDir:     parsersDir,
			GroupByPackage: groupByPackage,
			PageSize:       2,
		})

		var err error
		items, err = store.NewMongoStore(ctx, store.MongoOptions{
			URL:            mongoURL,
			Database:       database,
			MainCollection: "items",
		})
		Expect(err).NotTo(HaveOccurred())
	}

	BeforeEach(func() {
		tempDir = createTempDir("catalog-sync-")
		statusDir = filepath.Join(tempDir, "status")
		ckan = helpers.NewFakeCKAN()
	})

	AfterEach(func() {
		if items != nil {
			_ = items.Close(ctx)
		}
		ckan.Close()
		cleanupTempDir(tempDir)
	})

	Context("Resource mode", func() {
		BeforeEach(func() {
			setup(false)

			csvURL := ckan.SetPayload("stops.csv", "id,name\n1,Central\n2,Harbour\n")
			ckan.SetVocabulary("v-theme", "themes")
			ckan.SetPackages(
				helpers.WithVocabularyTag(helpers.Package("pkg-a", "Bus stops",
					helpers.Resource("res-1", "stops.csv", "CSV", csvURL),
					helpers.Resource("res-2", "stops.pdf", "PDF", "https://example.org/stops.pdf"),
				), "Mobility", "v-theme"),
				helpers.Package("pkg-b", "Parks",
					helpers.Resource("res-3", "parks.json", "JSON", "https://example.org/parks.json"),
				),
				helpers.Package("pkg-c", "Empty package"),
			)
		})

		It("inserts one item per resource on the first run", func() {
			stats := runSync()

			Expect(stats.Packages).To(Equal(3))
			Expect(stats.Inserted).To(Equal(3))
			Expect(stats.Errors).To(BeZero())
			Expect(storedIDs()).To(ConsistOf("res-1", "res-2", "res-3"))

			stop := find("res-1")
			Expect(stop[item.FieldTitle]).To(Equal("stops.csv"))
			Expect(stop[item.FieldPackage]).To(Equal("Bus stops"))
			Expect(stop[item.FieldOrganization]).To(Equal("City Council"))
			Expect(stop["themes"]).To(ConsistOf("Mobility"))
			Expect(stop[item.DefaultFacet]).To(ConsistOf("Bus"))
			Expect(stop).To(HaveKey(item.FieldData))
			Expect(stop).To(HaveKey("rows"))

			Expect(ckan.VocabularyLookups("v-theme")).To(Equal(1))
		})

		It("writes nothing when the catalog did not change", func() {
			runSync()
			stats := runSync()

			Expect(stats.Syncd).To(Equal(3))
			Expect(stats.Inserted).To(BeZero())
			Expect(stats.Updated).To(BeZero())
			Expect(stats.Removed).To(BeZero())
			Expect(stats.CacheInvalidated).To(BeFalse())
		})

		It("updates changed items in place and removes vanished ones", func() {
			runSync()
			before := find("res-3")

			ckan.SetPackages(
				helpers.Package("pkg-b", "Parks and gardens",
					helpers.Resource("res-3", "parks.json", "JSON", "https://example.org/parks.json"),
				),
			)
			stats := runSync()

			Expect(stats.Updated).To(Equal(1))
			Expect(stats.Removed).To(Equal(2))
			Expect(stats.CacheInvalidated).To(BeTrue())
			Expect(storedIDs()).To(ConsistOf("res-3"))

			after := find("res-3")
			Expect(after[item.FieldPackage]).To(Equal("Parks and gardens"))
			Expect(after[item.FieldID]).To(Equal(before[item.FieldID]))
		})
	})

	Context("Group mode", func() {
		BeforeEach(func() {
			setup(true)
			ckan.SetPackages(
				helpers.Package("pkg-a", "Bus stops",
					helpers.Resource("res-1", "stops.csv", "CSV", "https://example.org/stops.csv"),
					helpers.Resource("res-2", "stops.pdf", "PDF", "https://example.org/stops.pdf"),
				),
				helpers.Package("pkg-c", "Empty package"),
			)
		})

		It("stores one item per package with its raw resources", func() {
			stats := runSync()

			Expect(stats.Inserted).To(Equal(2))
			Expect(storedIDs()).To(ConsistOf("pkg-a", "pkg-c"))

			pkg := find("pkg-a")
			Expect(pkg[item.FieldTitle]).To(Equal("Bus stops"))
			Expect(pkg[item.FieldResources]).To(HaveLen(2))
		})
	})
})

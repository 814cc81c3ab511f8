package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/feedsync/syncer/internal/domain"
)

// rowOutcome is the terminal state of one row's processing
type rowOutcome int

const (
	outcomeCreated rowOutcome = iota
	outcomeUpdated
	outcomeSkipped
)

// FeedStats aggregates per-feed row outcomes
type FeedStats struct {
	Created int
	Updated int
	Skipped int
}

// SyncServiceConfig holds configuration for the sync service
type SyncServiceConfig struct {
	VATDivisor          float64
	CurrencyID          string
	DeeplinkField       string
	ShippingField       string
	DefaultManufacturer string
	Stock               int
}

// SyncService drives the feed → enrichment → catalog upsert loop.
// Processing is strictly sequential: one feed at a time, one row at a
// time, so the catalog client's run-scoped caches need no coordination.
type SyncService struct {
	feeds    []domain.FeedDefinition
	source   domain.FeedSource
	enricher domain.Enricher
	catalog  domain.Catalog
	config   SyncServiceConfig

	categories    domain.CategoryIndex
	deliveryTimes domain.DeliveryTimeIndex
	categoryNames []string
	deliveryNames []string
}

// NewSyncService creates a sync service with dependencies
func NewSyncService(
	source domain.FeedSource,
	enricher domain.Enricher,
	catalog domain.Catalog,
	feeds []domain.FeedDefinition,
	config SyncServiceConfig,
) *SyncService {
	if config.VATDivisor == 0 {
		config.VATDivisor = 1.19
	}
	if config.Stock == 0 {
		config.Stock = 9999
	}

	return &SyncService{
		feeds:    feeds,
		source:   source,
		enricher: enricher,
		catalog:  catalog,
		config:   config,
	}
}

// Run processes every configured feed. A row failure only increments
// the feed's skipped counter; a feed failure only aborts that feed.
// Only an authentication failure aborts the whole run.
func (s *SyncService) Run(ctx context.Context) error {
	if err := s.catalog.Authenticate(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrAuthFailed, err)
	}

	s.loadIndexes(ctx)

	for _, def := range s.feeds {
		if err := ctx.Err(); err != nil {
			return err
		}

		log.Printf("[Sync] ===== Processing feed '%s' =====", def.ID)

		rows, err := s.source.Fetch(ctx, def)
		if err != nil {
			log.Printf("[Sync] Feed '%s' failed: %v. Continuing with next feed.", def.ID, err)
			continue
		}

		stats := FeedStats{}
		total := len(rows)
		for i, row := range rows {
			if err := ctx.Err(); err != nil {
				return err
			}

			log.Printf("[Sync] Processing row %d/%d for feed '%s'", i+1, total, def.ID)

			switch s.processRow(ctx, def, row, i+1) {
			case outcomeCreated:
				stats.Created++
			case outcomeUpdated:
				stats.Updated++
			case outcomeSkipped:
				stats.Skipped++
			}
		}

		log.Printf("[Sync] Feed '%s' done. Created=%d, Updated=%d, Skipped=%d",
			def.ID, stats.Created, stats.Updated, stats.Skipped)
	}

	log.Printf("[Sync] All feeds processed")
	return nil
}

// loadIndexes builds the category and delivery-time lookup tables once
// per run. Load failures are soft: the run proceeds with whatever
// loaded, new products just stay unclassified.
func (s *SyncService) loadIndexes(ctx context.Context) {
	categories, err := s.catalog.LoadCategoryIndex(ctx)
	if err != nil {
		log.Printf("[Sync] Warning: category index load failed: %v", err)
		categories = domain.CategoryIndex{}
	}

	deliveryTimes, err := s.catalog.LoadDeliveryTimeIndex(ctx)
	if err != nil {
		log.Printf("[Sync] Warning: delivery-time index load failed: %v", err)
		deliveryTimes = domain.DeliveryTimeIndex{}
	}

	s.categories = categories
	s.deliveryTimes = deliveryTimes
	s.categoryNames = sortedKeys(categories)
	s.deliveryNames = sortedKeys(deliveryTimes)

	log.Printf("[Sync] Loaded %d category paths, %d delivery times",
		len(s.categoryNames), len(s.deliveryNames))
}

// processRow runs one row through intake, lookup and the create or
// update path. Every failure is converted into the row's outcome.
func (s *SyncService) processRow(ctx context.Context, def domain.FeedDefinition, row domain.RawRow, index int) rowOutcome {
	intent := MapRow(row, def.ID)

	if !intent.HasBusinessKey() {
		log.Printf("[Sync] Row #%d: missing EAN/AAN, skipping", index)
		return outcomeSkipped
	}

	existing, err := s.catalog.FindProductByNumber(ctx, intent.ProductNumber)
	switch {
	case err == nil:
		return s.updateExisting(ctx, intent, existing)
	case errors.Is(err, domain.ErrProductNotFound):
		return s.createNew(ctx, def, intent)
	default:
		log.Printf("[Sync] Row #%d: lookup for '%s' failed: %v. Skipping.", index, intent.ProductNumber, err)
		return outcomeSkipped
	}
}

// createNew runs the full create path. Enrichment happens only here:
// existing products are never re-enriched.
func (s *SyncService) createNew(ctx context.Context, def domain.FeedDefinition, intent domain.ProductIntent) rowOutcome {
	manufacturerID := s.resolveManufacturer(ctx, def, intent)
	categoryID := s.resolveCategory(ctx, intent)
	deliveryTimeID := s.resolveDeliveryTime(ctx, intent)

	description, err := s.enricher.RewriteDescription(ctx, intent.Title, intent.Description)
	if err != nil {
		log.Printf("[Sync] Description rewrite failed for [%s]: %v. Using feed text.", intent.Title, err)
		description = intent.Description
	}

	payload := &domain.ProductPayload{
		Name:           intent.Title,
		ProductNumber:  intent.ProductNumber,
		Stock:          s.config.Stock,
		Description:    description,
		EAN:            intent.EAN,
		ManufacturerID: manufacturerID,
		Price:          BuildPrice(intent.PriceGross, intent.ListPrice, s.config.CurrencyID, s.config.VATDivisor),
		Active:         true,
		CustomFields:   s.customFields(intent),
	}
	if categoryID != "" {
		payload.Categories = []domain.CategoryRef{{ID: categoryID}}
	}
	if deliveryTimeID != "" {
		payload.DeliveryTimeID = deliveryTimeID
	}

	if intent.ImageURL != "" {
		mediaID, err := s.catalog.FindOrCreateMedia(ctx, intent.ImageURL)
		if err != nil {
			log.Printf("[Sync] Image upload failed for [%s]: %v. Skipping product.", intent.Title, err)
			return outcomeSkipped
		}
		// Cover is assigned in the same create call via the relation id
		relationID := domain.NewID()
		payload.Media = []domain.ProductMedia{{ID: relationID, MediaID: mediaID, Position: 0}}
		payload.CoverID = relationID
	}

	if err := s.catalog.CreateProduct(ctx, payload); err != nil {
		log.Printf("[Sync] Failed creating product [%s]: %v", intent.Title, err)
		return outcomeSkipped
	}

	log.Printf("[Sync] Created product [%s]", intent.Title)
	return outcomeCreated
}

// updateExisting patches price and custom fields only. Category,
// delivery time, description and images are never re-touched.
func (s *SyncService) updateExisting(ctx context.Context, intent domain.ProductIntent, existing *domain.ExistingProduct) rowOutcome {
	patch := &domain.ProductUpdate{
		ID:           existing.ID,
		Price:        BuildPrice(intent.PriceGross, intent.ListPrice, s.config.CurrencyID, s.config.VATDivisor),
		CustomFields: s.customFields(intent),
	}

	if err := s.catalog.UpdateProduct(ctx, existing.ID, patch); err != nil {
		log.Printf("[Sync] Failed updating product [%s]: %v", intent.Title, err)
		return outcomeSkipped
	}

	log.Printf("[Sync] Updated product [%s]", intent.Title)
	return outcomeUpdated
}

// resolveManufacturer substitutes the per-feed or global default for a
// blank name. Resolution failures are soft: the product is created
// without a manufacturer.
func (s *SyncService) resolveManufacturer(ctx context.Context, def domain.FeedDefinition, intent domain.ProductIntent) string {
	name := strings.TrimSpace(intent.Manufacturer)
	if name == "" {
		name = def.DefaultManufacturer
	}
	if name == "" {
		name = s.config.DefaultManufacturer
	}

	id, err := s.catalog.FindOrCreateManufacturer(ctx, name)
	if err != nil {
		log.Printf("[Sync] Manufacturer '%s' could not be resolved: %v", name, err)
		return ""
	}
	return id
}

// resolveCategory asks the enrichment API to pick a category path for a
// new product. Both "no match" and upstream failure leave the product
// unclassified rather than skipping the row.
func (s *SyncService) resolveCategory(ctx context.Context, intent domain.ProductIntent) string {
	if intent.CategoryHint == "" || len(s.categoryNames) == 0 {
		return ""
	}

	name, err := s.enricher.BestCategory(ctx, intent.Title, intent.Description, intent.CategoryHint, s.categoryNames)
	switch {
	case err == nil:
		return s.categories[name]
	case errors.Is(err, domain.ErrNoMatch):
		log.Printf("[Sync] No category match for [%s]", intent.Title)
	case errors.Is(err, domain.ErrRateLimited):
		log.Printf("[Sync] Category match rate-limited for [%s], proceeding without category", intent.Title)
	default:
		log.Printf("[Sync] Category match failed for [%s]: %v", intent.Title, err)
	}
	return ""
}

// resolveDeliveryTime mirrors resolveCategory for delivery times
func (s *SyncService) resolveDeliveryTime(ctx context.Context, intent domain.ProductIntent) string {
	if intent.DeliveryTimeText == "" || len(s.deliveryNames) == 0 {
		return ""
	}

	name, err := s.enricher.BestDeliveryTime(ctx, intent.DeliveryTimeText, s.deliveryNames)
	switch {
	case err == nil:
		return s.deliveryTimes[name]
	case errors.Is(err, domain.ErrNoMatch):
		log.Printf("[Sync] No delivery-time match for '%s'", intent.DeliveryTimeText)
	case errors.Is(err, domain.ErrRateLimited):
		log.Printf("[Sync] Delivery-time match rate-limited, proceeding without")
	default:
		log.Printf("[Sync] Delivery-time match failed: %v", err)
	}
	return ""
}

func (s *SyncService) customFields(intent domain.ProductIntent) map[string]string {
	return map[string]string{
		s.config.DeeplinkField: intent.Deeplink,
		s.config.ShippingField: intent.ShippingText,
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

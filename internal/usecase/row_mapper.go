package usecase

import (
	"strings"

	"github.com/feedsync/syncer/internal/domain"
)

// Feed column names. The reader guarantees every key exists on each row.
const (
	colDeeplink        = "Produkt-Deeplink"
	colTitle           = "Produkt-Titel"
	colDescription     = "Produktbeschreibung"
	colDescriptionLong = "Produktbeschreibung lang"
	colPriceGross      = "Preis (Brutto)"
	colStrikePrice     = "Streichpreis"
	colEAN             = "europäische Artikelnummer EAN"
	colAAN             = "Anbieter Artikelnummer AAN"
	colManufacturer    = "Hersteller"
	colImage           = "Produktbild-URL"
	colPreviewImage    = "Vorschaubild-URL"
	colCategory        = "Produktkategorie"
	colShipping        = "Versandkosten Allgemein"
	colDeliveryTime    = "Lieferzeit"
)

// MapRow maps a raw feed row into a canonical product intent. Pure and
// total: unprocessability is signaled via an empty ProductNumber, which
// the orchestrator checks before any remote call.
func MapRow(row domain.RawRow, feedID string) domain.ProductIntent {
	description := row[colDescription]
	if description == "" {
		description = row[colDescriptionLong]
	}

	imageURL := row[colImage]
	if imageURL == "" {
		imageURL = row[colPreviewImage]
	}

	ean := strings.TrimSpace(row[colEAN])
	aan := strings.TrimSpace(row[colAAN])

	// Business key: supplier article number wins over EAN
	var productNumber string
	switch {
	case aan != "":
		productNumber = feedID + "-" + aan
	case ean != "":
		productNumber = feedID + "-" + ean
	}

	return domain.ProductIntent{
		Deeplink:         row[colDeeplink],
		Title:            strings.TrimSpace(row[colTitle]),
		Description:      description,
		PriceGross:       row[colPriceGross],
		ListPrice:        row[colStrikePrice],
		EAN:              ean,
		AAN:              aan,
		Manufacturer:     row[colManufacturer],
		ImageURL:         imageURL,
		CategoryHint:     row[colCategory],
		ShippingText:     row[colShipping],
		DeliveryTimeText: row[colDeliveryTime],
		ProductNumber:    productNumber,
	}
}

package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"sitesupply/internal/apperror"
	"sitesupply/internal/model"
	"sitesupply/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LineItemInput is one requested order line as submitted by the client.
type LineItemInput struct {
	IsCustom     bool     `json:"is_custom"`
	ProductID    string   `json:"product_id"`
	Quantity     *int     `json:"quantity"`
	CustomNote   string   `json:"custom_note"`
	CustomImages []string `json:"custom_images"`
	SupplierID   string   `json:"supplier_id"`
}

// ValidatedLine is a line item that passed validation, ready to persist.
type ValidatedLine struct {
	Product      *model.Product
	ProductID    *uuid.UUID
	Quantity     int
	IsCustom     bool
	CustomNote   string
	CustomImages []string
	SupplierID   *uuid.UUID
}

var fileHandlePattern = regexp.MustCompile(`^file:[A-Za-z0-9._/-]+$`)

// OrderLineValidator checks proposed line items. It never writes.
type OrderLineValidator struct {
	products repository.ProductRepository
	ledger   StockLedger
}

func NewOrderLineValidator(products repository.ProductRepository, ledger StockLedger) *OrderLineValidator {
	return &OrderLineValidator{products: products, ledger: ledger}
}

// Validate runs the structural checks over every item first and only then
// checks stock, so a malformed request reports all its field errors at once.
func (v *OrderLineValidator) Validate(ctx context.Context, siteID *uuid.UUID, items []LineItemInput) ([]ValidatedLine, error) {
	if len(items) == 0 {
		return nil, apperror.InvalidLineItem(map[string]string{"items": "at least one item is required"})
	}

	fields := make(map[string]string)
	imageOnly := true
	lines := make([]ValidatedLine, len(items))

	for i, item := range items {
		key := func(f string) string { return fmt.Sprintf("items.%d.%s", i, f) }
		note := strings.TrimSpace(item.CustomNote)

		if item.IsCustom {
			if strings.TrimSpace(item.ProductID) != "" {
				fields[key("product_id")] = "must be empty for a custom item"
				imageOnly = false
			}
			if item.Quantity != nil {
				fields[key("quantity")] = "must be empty for a custom item"
				imageOnly = false
			}
			if note == "" && len(item.CustomImages) == 0 {
				fields[key("custom_note")] = "a custom item needs a note or at least one image"
				imageOnly = false
			}
			for j, img := range item.CustomImages {
				if !validImage(img) {
					fields[fmt.Sprintf("items.%d.custom_images.%d", i, j)] = "must be a file handle or base64 data"
				}
			}
			lines[i] = ValidatedLine{IsCustom: true, CustomNote: note, CustomImages: item.CustomImages}
		} else {
			pid, err := uuid.Parse(strings.TrimSpace(item.ProductID))
			if err != nil {
				fields[key("product_id")] = "is required"
				imageOnly = false
			}
			if item.Quantity == nil || *item.Quantity < 1 {
				fields[key("quantity")] = "must be at least 1"
				imageOnly = false
			}
			if note != "" {
				fields[key("custom_note")] = "must be empty for a catalog item"
				imageOnly = false
			}
			if len(item.CustomImages) > 0 {
				fields[key("custom_images")] = "must be empty for a catalog item"
				imageOnly = false
			}
			if err == nil {
				id := pid
				lines[i].ProductID = &id
			}
			if item.Quantity != nil {
				lines[i].Quantity = *item.Quantity
			}
		}

		if sid := strings.TrimSpace(item.SupplierID); sid != "" {
			id, err := uuid.Parse(sid)
			if err != nil {
				fields[key("supplier_id")] = "must be a valid id"
				imageOnly = false
			} else {
				lines[i].SupplierID = &id
			}
		}
	}

	if len(fields) > 0 {
		verr := apperror.InvalidLineItem(fields)
		if imageOnly {
			verr.Code = apperror.CodeInvalidImageFormat
		}
		return nil, verr
	}

	for i := range lines {
		if lines[i].IsCustom {
			continue
		}
		product, err := v.products.FindByID(ctx, *lines[i].ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperror.InvalidLineItem(map[string]string{fmt.Sprintf("items.%d.product_id", i): "product does not exist"})
			}
			return nil, fmt.Errorf("failed to load product: %w", err)
		}
		lines[i].Product = product

		if !product.TracksStock() {
			continue
		}
		available, err := v.ledger.Available(ctx, product.ID, siteID)
		if err != nil {
			return nil, err
		}
		if lines[i].Quantity > available {
			return nil, apperror.InsufficientStock(fmt.Sprintf("items.%d.quantity", i), lines[i].Quantity, available)
		}
	}

	return lines, nil
}

// validImage accepts an uploaded file handle, a base64 data URI or raw
// base64.
func validImage(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if fileHandlePattern.MatchString(s) {
		return true
	}
	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 || !strings.HasSuffix(s[:comma], ";base64") {
			return false
		}
		s = s[comma+1:]
	}
	_, err := base64.StdEncoding.DecodeString(s)
	return err == nil
}

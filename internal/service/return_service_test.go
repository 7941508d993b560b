package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"sitesupply/internal/apperror"
	"sitesupply/internal/model"

	"github.com/google/uuid"
)

func TestNormalizeReturnPayload_LegacyWastage(t *testing.T) {
	var payload ReturnPayload
	raw := `{"type":"site","products":[{"product_id":"p1","quantity":5,"wastage_qty":3,"adjust_stock":true}]}`
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatal(err)
	}

	got := NormalizeReturnPayload(payload)
	if len(got.Items) != 1 || got.Products != nil {
		t.Fatalf("Expected products folded into items, got %+v", got)
	}
	item := got.Items[0]
	if item.ReturnQuantity == nil || *item.ReturnQuantity != 3 {
		t.Errorf("Expected return_quantity 3, got %v", item.ReturnQuantity)
	}
	if item.OrderedQuantity == nil || *item.OrderedQuantity != 5 {
		t.Errorf("Expected ordered_quantity 5, got %v", item.OrderedQuantity)
	}
	if !item.AdjustStock {
		t.Error("Expected adjust_stock to survive normalization")
	}
}

func TestNormalizeReturnPayload_CanonicalFieldsWin(t *testing.T) {
	payload := ReturnPayload{Products: []ReturnItemInput{{
		ProductID:      "p1",
		ReturnQuantity: intPtr(2),
		WastageQty:     intPtr(9),
	}}}
	got := NormalizeReturnPayload(payload)
	if *got.Items[0].ReturnQuantity != 2 {
		t.Errorf("Expected canonical return_quantity to be kept, got %d", *got.Items[0].ReturnQuantity)
	}

	payload = ReturnPayload{Items: []ReturnItemInput{{ProductID: "a", ReturnQuantity: intPtr(1)}}, Products: []ReturnItemInput{{ProductID: "b"}}}
	got = NormalizeReturnPayload(payload)
	if len(got.Items) != 1 || got.Items[0].ProductID != "a" {
		t.Errorf("Expected items[] to take precedence, got %+v", got.Items)
	}
}

func TestCreateReturn_StockPolarity(t *testing.T) {
	testCases := []struct {
		name      string
		kind      string
		typ       string
		wantDelta int
		wantSite  bool
		source    string
	}{
		{"wastage on site", model.ReturnKindWastage, model.ReturnTypeSite, -3, true, model.SourceWastage},
		{"wastage in store", model.ReturnKindWastage, model.ReturnTypeStore, -3, false, model.SourceWastage},
		{"unused goods back from site", model.ReturnKindReturn, model.ReturnTypeSite, 3, true, model.SourceReturn},
		{"goods back to supplier", model.ReturnKindReturn, model.ReturnTypeStore, -3, false, model.SourceReturn},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.seed(t, f.cement.ID, nil, 10)

			res, err := f.returns.Create(context.Background(), tc.kind, f.siteMgr, ReturnPayload{
				Type:   tc.typ,
				SiteID: f.site.ID.String(),
				Items: []ReturnItemInput{
					{ProductID: f.cement.ID.String(), ReturnQuantity: intPtr(3), AdjustStock: true},
					{ProductID: f.lpo.ID.String(), ReturnQuantity: intPtr(1), AdjustStock: true},
				},
			})
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if res.Kind != tc.kind || len(res.Items) != 2 {
				t.Errorf("Unexpected record %+v", res)
			}

			if len(f.store.movements) != 2 {
				t.Fatalf("Expected exactly one ledger row for the tracked product, got %d", len(f.store.movements)-1)
			}
			m := f.store.movements[1]
			if m.Delta != tc.wantDelta || m.Source != tc.source {
				t.Errorf("Expected delta %d from %s, got %d from %s", tc.wantDelta, tc.source, m.Delta, m.Source)
			}
			if (m.SiteID != nil) != tc.wantSite {
				t.Errorf("Unexpected scope %v", m.SiteID)
			}
			if m.ReturnID == nil || m.ReturnID.String() != res.ID {
				t.Error("Expected ledger row to reference the return")
			}
			if len(f.notificationsOf(f.storeMgr.ID, model.EventReturnRecorded)) != 1 {
				t.Error("Expected store manager to be told about the return")
			}
		})
	}
}

func TestCreateReturn_LegacyWastagePayload(t *testing.T) {
	f := newFixture(t)
	f.seed(t, f.cement.ID, nil, 10)

	res, err := f.returns.Create(context.Background(), model.ReturnKindWastage, f.siteMgr, ReturnPayload{
		Type:   model.ReturnTypeStore,
		Reason: "water damage",
		Products: []ReturnItemInput{
			{ProductID: f.cement.ID.String(), Quantity: intPtr(5), WastageQty: intPtr(3), AdjustStock: true},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.Items[0].ReturnQuantity != 3 || res.Items[0].OrderedQuantity != 5 {
		t.Errorf("Unexpected item %+v", res.Items[0])
	}
	general, _ := f.stock.GetCurrentStock(context.Background(), f.cement.ID, nil)
	if general != 7 {
		t.Errorf("Expected general stock 7 after wastage, got %d", general)
	}
}

func TestCreateReturn_Failures(t *testing.T) {
	f := newFixture(t)
	cement := f.cement.ID.String()

	testCases := []struct {
		name    string
		kind    string
		payload ReturnPayload
		want    error
	}{
		{
			name:    "zero quantity",
			kind:    model.ReturnKindReturn,
			payload: ReturnPayload{Type: model.ReturnTypeStore, Items: []ReturnItemInput{{ProductID: cement, ReturnQuantity: intPtr(0)}}},
			want:    apperror.ErrValidation,
		},
		{
			name:    "no items",
			kind:    model.ReturnKindReturn,
			payload: ReturnPayload{Type: model.ReturnTypeStore},
			want:    apperror.ErrValidation,
		},
		{
			name:    "bad type",
			kind:    model.ReturnKindWastage,
			payload: ReturnPayload{Type: "truck", Items: []ReturnItemInput{{ProductID: cement, ReturnQuantity: intPtr(1)}}},
			want:    apperror.ErrValidation,
		},
		{
			name:    "unknown product",
			kind:    model.ReturnKindReturn,
			payload: ReturnPayload{Type: model.ReturnTypeStore, Items: []ReturnItemInput{{ProductID: uuid.NewString(), ReturnQuantity: intPtr(1)}}},
			want:    apperror.ErrNotFound,
		},
		{
			name:    "unknown order",
			kind:    model.ReturnKindReturn,
			payload: ReturnPayload{Type: model.ReturnTypeStore, OrderID: uuid.NewString(), Items: []ReturnItemInput{{ProductID: cement, ReturnQuantity: intPtr(1)}}},
			want:    apperror.ErrNotFound,
		},
		{
			name:    "unknown site",
			kind:    model.ReturnKindReturn,
			payload: ReturnPayload{Type: model.ReturnTypeSite, SiteID: uuid.NewString(), Items: []ReturnItemInput{{ProductID: cement, ReturnQuantity: intPtr(1)}}},
			want:    apperror.ErrNotFound,
		},
		{
			name:    "unknown manager",
			kind:    model.ReturnKindReturn,
			payload: ReturnPayload{Type: model.ReturnTypeStore, ManagerID: uuid.NewString(), Items: []ReturnItemInput{{ProductID: cement, ReturnQuantity: intPtr(1)}}},
			want:    apperror.ErrNotFound,
		},
		{
			name:    "site adjustment without site",
			kind:    model.ReturnKindReturn,
			payload: ReturnPayload{Type: model.ReturnTypeSite, Items: []ReturnItemInput{{ProductID: cement, ReturnQuantity: intPtr(1), AdjustStock: true}}},
			want:    apperror.ErrValidation,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.returns.Create(context.Background(), tc.kind, f.siteMgr, tc.payload)
			if !errors.Is(err, tc.want) {
				t.Fatalf("Expected %v, got %v", tc.want, err)
			}
			if len(f.store.returns) != 0 {
				t.Errorf("Expected nothing persisted, got %d records", len(f.store.returns))
			}
		})
	}
}

func TestCreateReturn_OverReturnIsRecorded(t *testing.T) {
	f := newFixture(t)
	res, err := f.returns.Create(context.Background(), model.ReturnKindReturn, f.storeMgr, ReturnPayload{
		Type:  model.ReturnTypeStore,
		Items: []ReturnItemInput{{ProductID: f.cement.ID.String(), OrderedQuantity: intPtr(2), ReturnQuantity: intPtr(4)}},
	})
	if err != nil {
		t.Fatalf("Expected over-return to be accepted, got %v", err)
	}
	if res.ManagerID != f.storeMgr.ID.String() {
		t.Errorf("Expected manager to default to the actor, got %s", res.ManagerID)
	}

	got, err := f.returns.Get(context.Background(), f.storeMgr, res.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Items[0].ReturnQuantity != 4 {
		t.Errorf("Unexpected item %+v", got.Items[0])
	}
}

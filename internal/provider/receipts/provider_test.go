package receipts

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"receipts/internal/httpclient"
	"receipts/internal/model"
	"receipts/internal/provider"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func newProvider(t *testing.T, r chi.Router) Provider {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewReceiptsProvider(httpclient.New(srv.URL, httpclient.WithLogger(log)), log)
}

func TestProcessWithGPT_ContinuesPastFailures(t *testing.T) {
	var analyzed atomic.Int32

	r := chi.NewRouter()
	r.Get("/api/v1/main/images/{id}/receipts", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    []model.Receipt{{ID: "r1"}, {ID: "r2"}, {ID: "r3"}},
		})
	})
	r.Post("/api/v1/main/receipts/{id}/gpt-analysis", func(w http.ResponseWriter, req *http.Request) {
		analyzed.Add(1)
		id := chi.URLParam(req, "id")
		if id == "r2" {
			writeJSON(w, http.StatusBadGateway, map[string]any{"message": "model unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data": model.ReceiptAnalysis{
				ID:             "a-" + id,
				ReceiptID:      id,
				AnalysisResult: map[string]any{"store": "corner shop"},
			},
		})
	})

	report, err := newProvider(t, r).ProcessWithGPT(context.Background(), "img-1")
	require.NoError(t, err)

	assert.EqualValues(t, 3, analyzed.Load())
	assert.Equal(t, 3, report.Total)
	require.Len(t, report.Analyzed, 2)
	assert.Equal(t, "r1", report.Analyzed[0].ReceiptID)
	assert.Equal(t, "r3", report.Analyzed[1].ReceiptID)
	assert.Equal(t, "corner shop", report.Analyzed[0].AnalysisResult["store"])

	require.Contains(t, report.Failed, "r2")
	var apiErr *model.APIError
	require.ErrorAs(t, report.Failed["r2"], &apiErr)
	assert.Equal(t, "model unavailable", apiErr.Message)
}

func TestProcessWithGPT_ListFailureIsFatal(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/v1/main/images/{id}/receipts", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"detail": "db down"})
	})

	report, err := newProvider(t, r).ProcessWithGPT(context.Background(), "img-1")
	require.Error(t, err)
	assert.Nil(t, report)
}

func TestProcessWithGPT_NoReceipts(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/v1/main/images/{id}/receipts", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": []model.Receipt{}})
	})

	report, err := newProvider(t, r).ProcessWithGPT(context.Background(), "img-1")
	require.NoError(t, err)
	assert.Zero(t, report.Total)
	assert.Empty(t, report.Failed)
}

func TestProcessBatch(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/v1/main/receipts/process-batch", func(w http.ResponseWriter, req *http.Request) {
		var body model.BatchRequest
		if !assert.NoError(t, json.NewDecoder(req.Body).Decode(&body)) {
			return
		}
		out := make([]model.ProcessedReceipt, 0, len(body.ImageIDs))
		for _, id := range body.ImageIDs {
			out = append(out, model.ProcessedReceipt{ID: "p-" + id, ImageID: id, TotalAmount: 9.5})
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": model.BatchResult{Receipts: out}})
	})

	p := newProvider(t, r)

	got, err := p.ProcessBatch(context.Background(), []string{"i1", "i2"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "i2", got[1].ImageID)

	_, err = p.ProcessBatch(context.Background(), nil)
	assert.ErrorIs(t, err, provider.ErrMissingData)

	_, err = p.ProcessBatch(context.Background(), []string{"i1", ""})
	assert.ErrorIs(t, err, provider.ErrMissingData)
}

func TestGet_EmptyData(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/v1/main/receipts/{id}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})

	_, err := newProvider(t, r).Get(context.Background(), "r1")
	assert.ErrorIs(t, err, provider.ErrEmptyResponse)
}

func TestCreate(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/v1/main/receipts", func(w http.ResponseWriter, req *http.Request) {
		var in model.CreateReceiptInput
		if !assert.NoError(t, json.NewDecoder(req.Body).Decode(&in)) {
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"success": true,
			"data":    model.Receipt{ID: "r9", ImageID: in.ImageID, StoreName: in.StoreName, TotalAmount: in.TotalAmount},
		})
	})

	p := newProvider(t, r)

	rec, err := p.Create(context.Background(), model.CreateReceiptInput{ImageID: "img-1", StoreName: "Shop", TotalAmount: 12})
	require.NoError(t, err)
	assert.Equal(t, "r9", rec.ID)
	assert.Equal(t, "Shop", rec.StoreName)

	_, err = p.Create(context.Background(), model.CreateReceiptInput{})
	assert.ErrorIs(t, err, provider.ErrMissingData)
}

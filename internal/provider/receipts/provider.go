package receipts

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"receipts/internal/httpclient"
	"receipts/internal/model"
	"receipts/internal/provider"
)

const (
	pathBatch = "/api/v1/main/receipts/process-batch"

	msgListFailed    = "failed to load receipts"
	msgGetFailed     = "failed to load receipt"
	msgCreateFailed  = "failed to create receipt"
	msgAnalyzeFailed = "gpt analysis failed"
	msgBatchFailed   = "failed to process receipt images"
)

type Provider interface {
	ListByImage(ctx context.Context, imageID string) ([]model.Receipt, error)
	Get(ctx context.Context, id string) (*model.Receipt, error)
	Create(ctx context.Context, in model.CreateReceiptInput) (*model.Receipt, error)
	AnalyzeWithGPT(ctx context.Context, receiptID string) (*model.ReceiptAnalysis, error)
	ProcessWithGPT(ctx context.Context, imageID string) (*ProcessReport, error)
	ProcessBatch(ctx context.Context, imageIDs []string) ([]model.ProcessedReceipt, error)
}

// ProcessReport - итог последовательного анализа всех чеков изображения.
type ProcessReport struct {
	Total    int
	Analyzed []model.ReceiptAnalysis
	Failed   map[string]error
}

type receiptsProvider struct {
	client *httpclient.Client
	log    *slog.Logger
}

func NewReceiptsProvider(client *httpclient.Client, log *slog.Logger) Provider {
	return &receiptsProvider{client: client, log: log}
}

func receiptPath(id, suffix string) string {
	return fmt.Sprintf("/api/v1/main/receipts/%s%s", url.PathEscape(id), suffix)
}

func (p *receiptsProvider) ListByImage(ctx context.Context, imageID string) ([]model.Receipt, error) {
	const op = "receipts.ListByImage"

	if imageID == "" {
		return nil, fmt.Errorf("%s: %w: empty image id", op, provider.ErrMissingData)
	}

	path := fmt.Sprintf("/api/v1/main/images/%s/receipts", url.PathEscape(imageID))
	var env model.ListEnvelope[model.Receipt]
	if err := p.client.Do(ctx, http.MethodGet, path, nil, &env); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	receipts, err := env.Result(msgListFailed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return receipts, nil
}

func (p *receiptsProvider) Get(ctx context.Context, id string) (*model.Receipt, error) {
	const op = "receipts.Get"

	if id == "" {
		return nil, fmt.Errorf("%s: %w: empty receipt id", op, provider.ErrMissingData)
	}

	var env model.Envelope[model.Receipt]
	if err := p.client.Do(ctx, http.MethodGet, receiptPath(id, ""), nil, &env); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return provider.Single(op, env, msgGetFailed)
}

func (p *receiptsProvider) Create(ctx context.Context, in model.CreateReceiptInput) (*model.Receipt, error) {
	const op = "receipts.Create"

	if err := provider.Validate(in); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var env model.Envelope[model.Receipt]
	if err := p.client.Do(ctx, http.MethodPost, "/api/v1/main/receipts", in, &env); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return provider.Single(op, env, msgCreateFailed)
}

func (p *receiptsProvider) AnalyzeWithGPT(ctx context.Context, receiptID string) (*model.ReceiptAnalysis, error) {
	const op = "receipts.AnalyzeWithGPT"

	if receiptID == "" {
		return nil, fmt.Errorf("%s: %w: empty receipt id", op, provider.ErrMissingData)
	}

	var env model.Envelope[model.ReceiptAnalysis]
	if err := p.client.Do(ctx, http.MethodPost, receiptPath(receiptID, "/gpt-analysis"), struct{}{}, &env); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return provider.Single(op, env, msgAnalyzeFailed)
}

// ProcessWithGPT анализирует чеки изображения по одному. Ошибка отдельного
// чека не прерывает обработку, ошибка получения списка - прерывает.
func (p *receiptsProvider) ProcessWithGPT(ctx context.Context, imageID string) (*ProcessReport, error) {
	const op = "receipts.ProcessWithGPT"
	log := p.log.With(slog.String("op", op), slog.String("image_id", imageID))

	receipts, err := p.ListByImage(ctx, imageID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	report := &ProcessReport{Total: len(receipts), Failed: map[string]error{}}
	if len(receipts) == 0 {
		log.Info("no receipts to analyze")
		return report, nil
	}

	for i, r := range receipts {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("%s: %w", op, err)
		}

		analysis, err := p.AnalyzeWithGPT(ctx, r.ID)
		if err != nil {
			log.Warn("receipt analysis failed",
				slog.String("receipt_id", r.ID),
				slog.Int("index", i+1),
				slog.Int("total", len(receipts)),
				slog.String("error", err.Error()))
			report.Failed[r.ID] = err
			continue
		}
		report.Analyzed = append(report.Analyzed, *analysis)
	}

	log.Info("receipts analyzed",
		slog.Int("total", report.Total),
		slog.Int("failed", len(report.Failed)))
	return report, nil
}

func (p *receiptsProvider) ProcessBatch(ctx context.Context, imageIDs []string) ([]model.ProcessedReceipt, error) {
	const op = "receipts.ProcessBatch"

	req := model.BatchRequest{ImageIDs: imageIDs}
	if err := provider.Validate(req); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var env model.Envelope[model.BatchResult]
	if err := p.client.Do(ctx, http.MethodPost, pathBatch, req, &env); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	res, err := env.Result(msgBatchFailed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res.Receipts, nil
}

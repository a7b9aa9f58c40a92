package images

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
	msgListFailed    = "failed to load images"
	msgGetFailed     = "failed to load image"
	msgUploadFailed  = "failed to upload image"
	msgStatusFailed  = "failed to update image status"
	msgAreaFailed    = "failed to create receipt area"
	msgSelectFailed  = "failed to select receipt area"
	msgExtractFailed = "failed to extract text"
)

type Provider interface {
	ListByTask(ctx context.Context, taskID string) ([]model.Image, error)
	Get(ctx context.Context, id string) (*model.Image, error)
	Upload(ctx context.Context, in model.UploadImageInput) (*model.Image, error)
	UpdateStatus(ctx context.Context, id string, status model.ImageStatus) (*model.Image, error)

	CreateReceiptArea(ctx context.Context, id string) ([]model.ReceiptArea, error)
	SelectReceiptArea(ctx context.Context, id string, areas []model.ReceiptArea) ([]model.ReceiptArea, error)
	ExtractOCR(ctx context.Context, id string) (*model.OCRResult, error)
}

type imagesProvider struct {
	client *httpclient.Client
	log    *slog.Logger
}

func NewImagesProvider(client *httpclient.Client, log *slog.Logger) Provider {
	return &imagesProvider{client: client, log: log}
}

func taskImagesPath(taskID string) string {
	return fmt.Sprintf("/api/v1/main/tasks/%s/images", url.PathEscape(taskID))
}

func imagePath(id string, suffix string) string {
	return fmt.Sprintf("/api/v1/main/images/%s%s", url.PathEscape(id), suffix)
}

func (p *imagesProvider) ListByTask(ctx context.Context, taskID string) ([]model.Image, error) {
	const op = "images.ListByTask"

	if taskID == "" {
		return nil, fmt.Errorf("%s: %w: empty task id", op, provider.ErrMissingData)
	}

	var env model.ListEnvelope[model.Image]
	if err := p.client.Do(ctx, http.MethodGet, taskImagesPath(taskID), nil, &env); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	images, err := env.Result(msgListFailed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return images, nil
}

func (p *imagesProvider) Get(ctx context.Context, id string) (*model.Image, error) {
	const op = "images.Get"

	if id == "" {
		return nil, fmt.Errorf("%s: %w: empty image id", op, provider.ErrMissingData)
	}

	var env model.Envelope[model.Image]
	if err := p.client.Do(ctx, http.MethodGet, imagePath(id, ""), nil, &env); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return provider.Single(op, env, msgGetFailed)
}

func (p *imagesProvider) Upload(ctx context.Context, in model.UploadImageInput) (*model.Image, error) {
	const op = "images.Upload"

	if err := provider.Validate(in); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	fields := map[string]string{"taskId": in.TaskID}
	if in.Description != "" {
		fields["description"] = in.Description
	}

	var env model.Envelope[model.Image]
	err := p.client.DoMultipart(ctx, taskImagesPath(in.TaskID), fields, httpclient.File{
		Field:   "file",
		Name:    in.FileName,
		Content: in.Content,
	}, &env)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	img, err := provider.Single(op, env, msgUploadFailed)
	if err != nil {
		return nil, err
	}

	p.log.Info("image uploaded",
		slog.String("op", op),
		slog.String("task_id", in.TaskID),
		slog.String("image_id", img.ID),
		slog.Int("size", len(in.Content)))
	return img, nil
}

func (p *imagesProvider) UpdateStatus(ctx context.Context, id string, status model.ImageStatus) (*model.Image, error) {
	const op = "images.UpdateStatus"

	var env model.Envelope[model.Image]
	err := p.client.Do(ctx, http.MethodPatch, imagePath(id, "/status"), model.ImageStatusUpdate{ProcessingStatus: status}, &env)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := env.Result(msgStatusFailed); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if env.Data == nil {
		// сервер может ответить без тела
		return &model.Image{ID: id, ProcessingStatus: status}, nil
	}
	return env.Data, nil
}

func (p *imagesProvider) CreateReceiptArea(ctx context.Context, id string) ([]model.ReceiptArea, error) {
	const op = "images.CreateReceiptArea"

	var areas []model.ReceiptArea
	err := p.process(ctx, op, id, model.ImageAreaCreating, model.ImageAreaCreated, func() error {
		var env model.ListEnvelope[model.ReceiptArea]
		if err := p.client.Do(ctx, http.MethodPost, imagePath(id, "/receipt-areas"), nil, &env); err != nil {
			return err
		}
		res, err := env.Result(msgAreaFailed)
		areas = res
		return err
	})
	if err != nil {
		return nil, err
	}
	return areas, nil
}

func (p *imagesProvider) SelectReceiptArea(ctx context.Context, id string, areas []model.ReceiptArea) ([]model.ReceiptArea, error) {
	const op = "images.SelectReceiptArea"

	if len(areas) == 0 {
		return nil, fmt.Errorf("%s: %w: no areas selected", op, provider.ErrMissingData)
	}
	for _, a := range areas {
		if err := provider.Validate(a); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	var selected []model.ReceiptArea
	err := p.process(ctx, op, id, model.ImageAreaSelecting, model.ImageOCRWaiting, func() error {
		var env model.ListEnvelope[model.ReceiptArea]
		body := map[string]any{"areas": areas}
		if err := p.client.Do(ctx, http.MethodPut, imagePath(id, "/receipt-areas"), body, &env); err != nil {
			return err
		}
		res, err := env.Result(msgSelectFailed)
		selected = res
		return err
	})
	if err != nil {
		return nil, err
	}
	return selected, nil
}

func (p *imagesProvider) ExtractOCR(ctx context.Context, id string) (*model.OCRResult, error) {
	const op = "images.ExtractOCR"

	var result *model.OCRResult
	err := p.process(ctx, op, id, model.ImageOCRProcessing, model.ImageCompleted, func() error {
		var env model.Envelope[model.OCRResult]
		if err := p.client.Do(ctx, http.MethodPost, imagePath(id, "/ocr"), nil, &env); err != nil {
			return err
		}
		res, err := provider.Single(op, env, msgExtractFailed)
		result = res
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// process ведёт статус изображения: before -> шаг -> after. Любой сбой
// откатывает статус в failed и возвращает ошибку шага.
func (p *imagesProvider) process(ctx context.Context, op, id string, before, after model.ImageStatus, step func() error) error {
	if id == "" {
		return fmt.Errorf("%s: %w: empty image id", op, provider.ErrMissingData)
	}
	log := p.log.With(slog.String("op", op), slog.String("image_id", id))

	// 1. Статус до шага
	if _, err := p.UpdateStatus(ctx, id, before); err != nil {
		p.rollback(ctx, log, id)
		return fmt.Errorf("%s: set %s: %w", op, before, err)
	}

	// 2. Сам шаг
	if err := step(); err != nil {
		log.Warn("processing step failed", slog.String("status", before.String()), slog.String("error", err.Error()))
		p.rollback(ctx, log, id)
		return fmt.Errorf("%s: %w", op, err)
	}

	// 3. Статус после шага
	if _, err := p.UpdateStatus(ctx, id, after); err != nil {
		p.rollback(ctx, log, id)
		return fmt.Errorf("%s: set %s: %w", op, after, err)
	}

	log.Info("processing step completed", slog.String("status", after.String()))
	return nil
}

func (p *imagesProvider) rollback(ctx context.Context, log *slog.Logger, id string) {
	if _, err := p.UpdateStatus(ctx, id, model.ImageFailed); err != nil {
		log.Error("failed to mark image as failed", slog.String("error", err.Error()))
	}
}

package images

import (
	"cmp"
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/exp/slices"

	"receipts/internal/model"
	"receipts/internal/provider"
	imageprovider "receipts/internal/provider/images"
	"receipts/internal/state"
)

const (
	msgLoadFailed    = "failed to load images"
	msgGetFailed     = "failed to load image"
	msgUploadFailed  = "failed to upload image"
	msgProcessFailed = "image processing failed"

	progressStep = 10
	progressCap  = 90
)

type State struct {
	ByTask         map[string][]model.Image
	Current        *model.Image
	Loading        bool
	Error          string
	Uploading      bool
	UploadProgress int
	Filter         model.ImageFilter
}

type Images struct {
	provider     imageprovider.Provider
	log          *slog.Logger
	store        *state.Store[State]
	progressTick time.Duration
}

func NewService(p imageprovider.Provider, log *slog.Logger) *Images {
	return &Images{
		provider:     p,
		log:          log,
		progressTick: 200 * time.Millisecond,
		store: state.New(State{
			ByTask: map[string][]model.Image{},
			Filter: model.DefaultImageFilter(),
		}),
	}
}

func (i *Images) State() State { return i.store.Get() }

func (i *Images) Subscribe(fn func(State)) func() { return i.store.Subscribe(fn) }

func (i *Images) LoadByTask(ctx context.Context, taskID string) ([]model.Image, error) {
	i.begin()

	images, err := i.provider.ListByTask(ctx, taskID)
	if err != nil {
		i.fail(err, msgLoadFailed)
		return nil, err
	}

	i.store.Update(func(s State) State {
		s.ByTask = withTask(s.ByTask, taskID, images)
		s.Loading = false
		return s
	})
	return images, nil
}

func (i *Images) Get(ctx context.Context, id string) (*model.Image, error) {
	i.begin()

	img, err := i.provider.Get(ctx, id)
	if err != nil {
		i.fail(err, msgGetFailed)
		return nil, err
	}

	i.store.Update(func(s State) State {
		s.Current = img
		s.Loading = false
		return s
	})
	return img, nil
}

func (i *Images) SetCurrent(img *model.Image) {
	i.store.Update(func(s State) State {
		s.Current = img
		return s
	})
}

// Upload загружает файл и добавляет изображение в начало списка задачи.
// Прогресс имитируется: сервер его не сообщает.
func (i *Images) Upload(ctx context.Context, in model.UploadImageInput) (*model.Image, error) {
	i.store.Update(func(s State) State {
		s.Uploading = true
		s.UploadProgress = 0
		s.Error = ""
		return s
	})

	stop := i.simulateProgress()
	img, err := i.provider.Upload(ctx, in)
	stop()

	if err != nil {
		msg := provider.Message(err, msgUploadFailed)
		i.store.Update(func(s State) State {
			s.Uploading = false
			s.UploadProgress = 0
			s.Error = msg
			return s
		})
		return nil, err
	}

	i.store.Update(func(s State) State {
		list := append([]model.Image{*img}, s.ByTask[in.TaskID]...)
		s.ByTask = withTask(s.ByTask, in.TaskID, list)
		s.Uploading = false
		s.UploadProgress = 100
		return s
	})
	return img, nil
}

func (i *Images) simulateProgress() func() {
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(i.progressTick)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				i.store.Update(func(s State) State {
					if s.Uploading && s.UploadProgress < progressCap {
						s.UploadProgress += progressStep
					}
					return s
				})
			}
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}

func (i *Images) SetFilter(f model.ImageFilter) {
	i.store.Update(func(s State) State {
		s.Filter = f
		return s
	})
}

// Filtered возвращает изображения задачи с учётом текущего фильтра.
func (i *Images) Filtered(taskID string) []model.Image {
	s := i.store.Get()
	return FilterAndSort(s.ByTask[taskID], s.Filter)
}

// UpdateStatus меняет статус только в локальном состоянии.
func (i *Images) UpdateStatus(imageID string, status model.ImageStatus) bool {
	found := false
	i.store.Update(func(s State) State {
		for taskID, list := range s.ByTask {
			idx := slices.IndexFunc(list, func(img model.Image) bool { return img.ID == imageID })
			if idx < 0 {
				continue
			}
			updated := slices.Clone(list)
			updated[idx].ProcessingStatus = status
			s.ByTask = withTask(s.ByTask, taskID, updated)
			found = true
			break
		}
		if s.Current != nil && s.Current.ID == imageID {
			cur := *s.Current
			cur.ProcessingStatus = status
			s.Current = &cur
			found = true
		}
		return s
	})
	return found
}

// PersistStatus сохраняет статус на сервере и отражает ответ в состоянии.
func (i *Images) PersistStatus(ctx context.Context, imageID string, status model.ImageStatus) error {
	img, err := i.provider.UpdateStatus(ctx, imageID, status)
	if err != nil {
		msg := provider.Message(err, msgProcessFailed)
		i.store.Update(func(s State) State {
			s.Error = msg
			return s
		})
		return err
	}
	i.UpdateStatus(imageID, img.ProcessingStatus)
	return nil
}

func (i *Images) CreateReceiptArea(ctx context.Context, imageID string) ([]model.ReceiptArea, error) {
	i.UpdateStatus(imageID, model.ImageAreaCreating)
	areas, err := i.provider.CreateReceiptArea(ctx, imageID)
	i.settle(imageID, model.ImageAreaCreated, err)
	return areas, err
}

func (i *Images) SelectReceiptArea(ctx context.Context, imageID string, areas []model.ReceiptArea) ([]model.ReceiptArea, error) {
	i.UpdateStatus(imageID, model.ImageAreaSelecting)
	selected, err := i.provider.SelectReceiptArea(ctx, imageID, areas)
	i.settle(imageID, model.ImageOCRWaiting, err)
	return selected, err
}

func (i *Images) ExtractOCR(ctx context.Context, imageID string) (*model.OCRResult, error) {
	i.UpdateStatus(imageID, model.ImageOCRProcessing)
	res, err := i.provider.ExtractOCR(ctx, imageID)
	i.settle(imageID, model.ImageCompleted, err)
	if err == nil && res != nil {
		i.store.Update(func(s State) State {
			if s.Current != nil && s.Current.ID == imageID {
				cur := *s.Current
				cur.OCRConfidence = res.Confidence
				cur.ReceiptCount = len(res.Receipts)
				s.Current = &cur
			}
			return s
		})
	}
	return res, err
}

// settle отражает итог шага обработки в локальном состоянии.
func (i *Images) settle(imageID string, next model.ImageStatus, err error) {
	if err != nil {
		i.UpdateStatus(imageID, model.ImageFailed)
		msg := provider.Message(err, msgProcessFailed)
		i.store.Update(func(s State) State {
			s.Error = msg
			return s
		})
		return
	}
	i.UpdateStatus(imageID, next)
}

func (i *Images) ClearError() {
	i.store.Update(func(s State) State {
		s.Error = ""
		return s
	})
}

func (i *Images) begin() {
	i.store.Update(func(s State) State {
		s.Loading = true
		s.Error = ""
		return s
	})
}

func (i *Images) fail(err error, fallback string) {
	msg := provider.Message(err, fallback)
	i.log.Warn("images operation failed", slog.String("error", err.Error()))
	i.store.Update(func(s State) State {
		s.Loading = false
		s.Error = msg
		return s
	})
}

// withTask копирует карту, чтобы ранее выданные снимки состояния не менялись.
func withTask(m map[string][]model.Image, taskID string, list []model.Image) map[string][]model.Image {
	out := make(map[string][]model.Image, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out[taskID] = list
	return out
}

func FilterAndSort(images []model.Image, f model.ImageFilter) []model.Image {
	out := make([]model.Image, 0, len(images))
	search := strings.ToLower(f.Search)
	for _, img := range images {
		if f.Status != nil && img.ProcessingStatus != *f.Status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(img.FileName), search) {
			continue
		}
		out = append(out, img)
	}

	var compare func(a, b model.Image) int
	switch f.SortBy {
	case model.SortByCreatedAt:
		compare = func(a, b model.Image) int { return strings.Compare(a.CreatedAt, b.CreatedAt) }
	case model.SortByFileName:
		compare = func(a, b model.Image) int { return strings.Compare(a.FileName, b.FileName) }
	case model.SortByFileSize:
		compare = func(a, b model.Image) int { return cmp.Compare(a.FileSize, b.FileSize) }
	default:
		return out
	}
	if f.SortOrder != model.SortAsc {
		asc := compare
		compare = func(a, b model.Image) int { return asc(b, a) }
	}
	slices.SortStableFunc(out, compare)
	return out
}

package mock

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"receipts/internal/model"
	receiptprovider "receipts/internal/provider/receipts"
)

// ===================== МОК AUTH PROVIDER =====================

type MockAuthProvider struct {
	mock.Mock
}

func NewAuthProvider() *MockAuthProvider {
	return &MockAuthProvider{}
}

func (m *MockAuthProvider) Login(ctx context.Context, email, password string, rememberMe bool) (*model.LoginResult, error) {
	args := m.Called(ctx, email, password, rememberMe)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LoginResult), args.Error(1)
}

func (m *MockAuthProvider) Register(ctx context.Context, reg model.Registration) (*model.LoginResult, error) {
	args := m.Called(ctx, reg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LoginResult), args.Error(1)
}

func (m *MockAuthProvider) Logout(ctx context.Context) model.Envelope[struct{}] {
	args := m.Called(ctx)
	return args.Get(0).(model.Envelope[struct{}])
}

func (m *MockAuthProvider) Me(ctx context.Context) (*model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

// ===================== МОК TASKS PROVIDER =====================

type MockTasksProvider struct {
	mock.Mock
}

func NewTasksProvider() *MockTasksProvider {
	return &MockTasksProvider{}
}

func (m *MockTasksProvider) List(ctx context.Context) ([]model.Task, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Task), args.Error(1)
}

func (m *MockTasksProvider) Get(ctx context.Context, id string) (*model.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Task), args.Error(1)
}

func (m *MockTasksProvider) Create(ctx context.Context, in model.CreateTaskInput) (*model.Task, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Task), args.Error(1)
}

func (m *MockTasksProvider) Update(ctx context.Context, id string, in model.UpdateTaskInput) (*model.Task, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Task), args.Error(1)
}

func (m *MockTasksProvider) Delete(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// ===================== МОК IMAGES PROVIDER =====================

type MockImagesProvider struct {
	mock.Mock
}

func NewImagesProvider() *MockImagesProvider {
	return &MockImagesProvider{}
}

func (m *MockImagesProvider) ListByTask(ctx context.Context, taskID string) ([]model.Image, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Image), args.Error(1)
}

func (m *MockImagesProvider) Get(ctx context.Context, id string) (*model.Image, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Image), args.Error(1)
}

func (m *MockImagesProvider) Upload(ctx context.Context, in model.UploadImageInput) (*model.Image, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Image), args.Error(1)
}

func (m *MockImagesProvider) UpdateStatus(ctx context.Context, id string, status model.ImageStatus) (*model.Image, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Image), args.Error(1)
}

func (m *MockImagesProvider) CreateReceiptArea(ctx context.Context, id string) ([]model.ReceiptArea, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ReceiptArea), args.Error(1)
}

func (m *MockImagesProvider) SelectReceiptArea(ctx context.Context, id string, areas []model.ReceiptArea) ([]model.ReceiptArea, error) {
	args := m.Called(ctx, id, areas)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ReceiptArea), args.Error(1)
}

func (m *MockImagesProvider) ExtractOCR(ctx context.Context, id string) (*model.OCRResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OCRResult), args.Error(1)
}

// ===================== МОК RECEIPTS PROVIDER =====================

type MockReceiptsProvider struct {
	mock.Mock
}

func NewReceiptsProvider() *MockReceiptsProvider {
	return &MockReceiptsProvider{}
}

func (m *MockReceiptsProvider) ListByImage(ctx context.Context, imageID string) ([]model.Receipt, error) {
	args := m.Called(ctx, imageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Receipt), args.Error(1)
}

func (m *MockReceiptsProvider) Get(ctx context.Context, id string) (*model.Receipt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Receipt), args.Error(1)
}

func (m *MockReceiptsProvider) Create(ctx context.Context, in model.CreateReceiptInput) (*model.Receipt, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Receipt), args.Error(1)
}

func (m *MockReceiptsProvider) AnalyzeWithGPT(ctx context.Context, receiptID string) (*model.ReceiptAnalysis, error) {
	args := m.Called(ctx, receiptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReceiptAnalysis), args.Error(1)
}

func (m *MockReceiptsProvider) ProcessWithGPT(ctx context.Context, imageID string) (*receiptprovider.ProcessReport, error) {
	args := m.Called(ctx, imageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*receiptprovider.ProcessReport), args.Error(1)
}

func (m *MockReceiptsProvider) ProcessBatch(ctx context.Context, imageIDs []string) ([]model.ProcessedReceipt, error) {
	args := m.Called(ctx, imageIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ProcessedReceipt), args.Error(1)
}

// ===================== МОК SESSION =====================

type MockSession struct {
	mu    sync.Mutex
	armed int
}

func NewMockSession() *MockSession {
	return &MockSession{}
}

func (m *MockSession) Arm() {
	m.mu.Lock()
	m.armed++
	m.mu.Unlock()
}

func (m *MockSession) Armed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.armed
}

// ===================== НАВИГАЦИЯ =====================

// Navigator запоминает все переходы.
type Navigator struct {
	mu    sync.Mutex
	paths []string
}

func (n *Navigator) Navigate(path string) {
	n.mu.Lock()
	n.paths = append(n.paths, path)
	n.mu.Unlock()
}

func (n *Navigator) Paths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.paths))
	copy(out, n.paths)
	return out
}

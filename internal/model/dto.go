package model

type Credentials struct {
	Username   string `json:"username" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"rememberMe"`
}

type Registration struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Username string `json:"username"`
	FullName string `json:"full_name,omitempty"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type CreateTaskInput struct {
	TaskName    string `json:"task_name" validate:"required"`
	Description string `json:"description,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
}

type UpdateTaskInput struct {
	TaskName    *string    `json:"task_name,omitempty"`
	Description *string    `json:"description,omitempty"`
	DueDate     *string    `json:"due_date,omitempty"`
	State       *TaskState `json:"state,omitempty" validate:"omitempty,oneof=0 1 2"`
}

type UploadImageInput struct {
	TaskID      string `validate:"required"`
	FileName    string `validate:"required"`
	Content     []byte `validate:"required,min=1"`
	Description string
}

type CreateReceiptInput struct {
	ImageID      string        `json:"image_id" validate:"required"`
	Title        string        `json:"title,omitempty"`
	StoreName    string        `json:"store_name,omitempty"`
	PurchaseDate string        `json:"purchase_date,omitempty"`
	TotalAmount  float64       `json:"total_amount,omitempty" validate:"gte=0"`
	Items        []ReceiptItem `json:"items,omitempty" validate:"dive"`
}

type BatchRequest struct {
	ImageIDs []string `json:"image_ids" validate:"required,min=1,dive,required"`
}

type BatchResult struct {
	Receipts []ProcessedReceipt `json:"receipts"`
}

// ImageStatusUpdate - тело PUT запроса смены статуса.
type ImageStatusUpdate struct {
	ProcessingStatus ImageStatus `json:"processing_status"`
}

package domain

import "time"

type Todo struct {
	ID          int64      `bson:"_id"                json:"todo_id"`
	OwnerID     int64      `bson:"owner_id"           json:"user_id"`
	Title       string     `bson:"title"              json:"title"`
	Description string     `bson:"description"        json:"description"`
	IsCompleted bool       `bson:"is_completed"       json:"is_completed"`
	IsRead      bool       `bson:"is_read"            json:"is_read"`
	DueDate     *time.Time `bson:"due_date,omitempty" json:"due_date"`
	CreatedAt   time.Time  `bson:"created_at"         json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updated_at"         json:"updatedAt"`
}

// TodoPatch is a partial update; nil fields are left untouched.
type TodoPatch struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	ClearDue    bool // "due_date": null
	IsCompleted *bool
	IsRead      *bool
}

func (p TodoPatch) Apply(t *Todo) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	switch {
	case p.DueDate != nil:
		d := *p.DueDate
		t.DueDate = &d
	case p.ClearDue:
		t.DueDate = nil
	}
	if p.IsCompleted != nil {
		t.IsCompleted = *p.IsCompleted
	}
	if p.IsRead != nil {
		t.IsRead = *p.IsRead
	}
}

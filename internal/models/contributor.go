package models

import "time"

// User is a knowledge base user as seen by contributor analytics.
type User struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	Username string `json:"username" gorm:"uniqueIndex;size:150;not null"`
}

type Product struct {
	ID    uint   `json:"id" gorm:"primaryKey"`
	Slug  string `json:"slug" gorm:"uniqueIndex;size:64;not null"`
	Title string `json:"title"`
}

// Document is a knowledge base article. Translations point at the
// original article through ParentID and usually carry no products of their own.
type Document struct {
	ID       uint      `json:"id" gorm:"primaryKey"`
	Title    string    `json:"title"`
	Locale   string    `json:"locale" gorm:"index;size:7;not null"`
	ParentID *uint     `json:"parent_id,omitempty" gorm:"index"`
	Parent   *Document `json:"-"`
	Products []Product `json:"products,omitempty" gorm:"many2many:document_products;"`
}

// Revision is one edit of a document and its optional review.
type Revision struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	DocumentID uint       `json:"document_id" gorm:"index;not null"`
	Document   Document   `json:"-"`
	CreatorID  uint       `json:"creator_id" gorm:"index;not null"`
	Creator    User       `json:"-"`
	ReviewerID *uint      `json:"reviewer_id,omitempty" gorm:"index"`
	Reviewer   *User      `json:"-"`
	Created    time.Time  `json:"created" gorm:"index;not null"`
	Reviewed   *time.Time `json:"reviewed,omitempty" gorm:"index"`
}

// Package models - IssueComment thuộc domain Issue.
package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CommentAuthorSystem là author của các comment do pipeline tự sinh (audit trail)
const CommentAuthorSystem = "System"

// IssueComment - bình luận trên issue. Pipeline ghi audit comment với author "System".
type IssueComment struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	IssueID   primitive.ObjectID `json:"issueId" bson:"issueId" index:"single:1"`
	Author    string             `json:"author" bson:"author"`
	Body      string             `json:"body" bson:"body"`
	CreatedAt int64              `json:"createdAt" bson:"createdAt" index:"single:-1"`
	UpdatedAt int64              `json:"updatedAt" bson:"updatedAt"`
}

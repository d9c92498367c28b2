package pipeline

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	issuemodels "civic_admin/internal/api/issue/models"
	issuesvc "civic_admin/internal/api/issue/service"
	"civic_admin/internal/common"
	"civic_admin/internal/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DuplicateMatch là một ứng viên trùng lặp đã chấm điểm. Ephemeral — không lưu
// thành entity riêng; match tốt nhất được ghi lên issue qua duplicateOfId/duplicateScore.
type DuplicateMatch struct {
	IssueID        primitive.ObjectID `json:"issueId"`
	Score          float64            `json:"score"`
	DistanceMeters float64            `json:"distanceMeters"` // làm tròn tới mét
	Category       string             `json:"category"`
}

// duplicateWindowMillis là cửa sổ ứng viên: 7 ngày liền trước reportedAt của subject
const duplicateWindowMillis = int64(7 * 24 * time.Hour / time.Millisecond)

// RankDuplicates chấm điểm và xếp hạng các ứng viên cho subject. Thuần túy:
// subject thiếu location → rỗng; loại ứng viên trùng id, thiếu location hoặc
// ngoài cửa sổ 7 ngày (mốc cắt cứng theo subject); giữ score ≥ 0.6; sort điểm
// giảm dần, hòa điểm giữ thứ tự tương đối ổn định.
func RankDuplicates(subject issuemodels.Issue, candidates []issuemodels.Issue) []DuplicateMatch {
	if subject.Location == nil {
		return nil
	}

	cutoff := subject.ReportedAt - duplicateWindowMillis

	var matches []DuplicateMatch
	for _, candidate := range candidates {
		if candidate.ID == subject.ID || candidate.Location == nil {
			continue
		}
		if candidate.ReportedAt <= cutoff {
			continue
		}

		score := Score(subject, candidate)
		if score < DuplicateScoreThreshold {
			continue
		}

		matches = append(matches, DuplicateMatch{
			IssueID:        candidate.ID,
			Score:          score,
			DistanceMeters: math.Round(DistanceMeters(*subject.Location, *candidate.Location)),
			Category:       candidate.Category,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	return matches
}

// duplicateIssueStore là phần đọc/ghi cờ trùng lặp của IssueService mà detector cần
type duplicateIssueStore interface {
	FindOneById(ctx context.Context, id primitive.ObjectID) (issuemodels.Issue, error)
	FindDuplicateCandidates(ctx context.Context, subject issuemodels.Issue) ([]issuemodels.Issue, error)
	FlagDuplicate(ctx context.Context, issueID primitive.ObjectID, duplicateOfID primitive.ObjectID, score float64) (issuemodels.Issue, error)
	ClearDuplicateFlag(ctx context.Context, issueID primitive.ObjectID) (issuemodels.Issue, error)
}

// DuplicateDetector tìm và gắn cờ issue trùng lặp
type DuplicateDetector struct {
	issueSvc   duplicateIssueStore
	commentSvc auditCommenter
}

// NewDuplicateDetector tạo mới DuplicateDetector
func NewDuplicateDetector() (*DuplicateDetector, error) {
	issueSvc, err := issuesvc.NewIssueService()
	if err != nil {
		return nil, err
	}
	commentSvc, err := issuesvc.NewIssueCommentService()
	if err != nil {
		return nil, err
	}

	return NewDuplicateDetectorWith(issueSvc, commentSvc), nil
}

// NewDuplicateDetectorWith tạo DuplicateDetector với các dependency được inject
func NewDuplicateDetectorWith(issueSvc duplicateIssueStore, commentSvc auditCommenter) *DuplicateDetector {
	return &DuplicateDetector{
		issueSvc:   issueSvc,
		commentSvc: commentSvc,
	}
}

// FindDuplicates trả về danh sách DuplicateMatch xếp theo điểm giảm dần.
// Issue không có location → danh sách rỗng, không lỗi.
func (d *DuplicateDetector) FindDuplicates(ctx context.Context, issue issuemodels.Issue) ([]DuplicateMatch, error) {
	if issue.Location == nil {
		return nil, nil
	}

	candidates, err := d.issueSvc.FindDuplicateCandidates(ctx, issue)
	if err != nil {
		return nil, err
	}

	return RankDuplicates(issue, candidates), nil
}

// FlagAsDuplicate ghi cờ trùng lặp lên issue kèm audit comment nêu id gốc và
// phần trăm khớp. Idempotent: đã gắn đúng cờ này rồi thì không ghi gì thêm.
func (d *DuplicateDetector) FlagAsDuplicate(ctx context.Context, issue issuemodels.Issue, match DuplicateMatch) error {
	if _, err := d.issueSvc.FlagDuplicate(ctx, issue.ID, match.IssueID, match.Score); err != nil {
		if err == common.ErrNotFound {
			return nil
		}
		return err
	}

	body := fmt.Sprintf("Possible duplicate of issue %s (%.0f%% match)", match.IssueID.Hex(), match.Score*100)
	if _, err := d.commentSvc.AddSystemComment(ctx, issue.ID, body); err != nil {
		logger.GetAppLogger().WithError(err).WithFields(map[string]interface{}{
			"issueId": issue.ID.Hex(),
		}).Warn("🔍 [DEDUP] Không ghi được audit comment")
	}

	logger.GetAppLogger().WithFields(map[string]interface{}{
		"issueId":     issue.ID.Hex(),
		"duplicateOf": match.IssueID.Hex(),
		"score":       match.Score,
	}).Info("🔍 [DEDUP] Đã gắn cờ trùng lặp")

	return nil
}

// ClearDuplicateFlag gỡ cờ trùng lặp theo yêu cầu của admin UI
func (d *DuplicateDetector) ClearDuplicateFlag(ctx context.Context, issueID primitive.ObjectID) error {
	if _, err := d.issueSvc.ClearDuplicateFlag(ctx, issueID); err != nil {
		if err == common.ErrNotFound {
			// Không có cờ để gỡ — kết quả cuối như nhau
			return nil
		}
		return err
	}
	return nil
}

// ProcessNewIssue chạy một lần cho issue mới tạo (sau debounce): đọc lại bản
// mới nhất của document rồi gắn cờ theo match tốt nhất nếu vượt ngưỡng.
func (d *DuplicateDetector) ProcessNewIssue(ctx context.Context, issueID primitive.ObjectID) {
	log := logger.GetAppLogger()

	issue, err := d.issueSvc.FindOneById(ctx, issueID)
	if err != nil {
		log.WithError(err).WithFields(map[string]interface{}{
			"issueId": issueID.Hex(),
		}).Error("🔍 [DEDUP] Không đọc lại được issue sau debounce")
		return
	}

	matches, err := d.FindDuplicates(ctx, issue)
	if err != nil {
		log.WithError(err).WithFields(map[string]interface{}{
			"issueId": issueID.Hex(),
		}).Error("🔍 [DEDUP] Lỗi tìm ứng viên trùng lặp")
		return
	}
	if len(matches) == 0 {
		return
	}

	if err := d.FlagAsDuplicate(ctx, issue, matches[0]); err != nil {
		log.WithError(err).WithFields(map[string]interface{}{
			"issueId": issueID.Hex(),
		}).Error("🔍 [DEDUP] Lỗi gắn cờ trùng lặp")
	}
}

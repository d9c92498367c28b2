// Package pipeline - Test xếp hạng ứng viên trùng lặp.
package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	issuemodels "civic_admin/internal/api/issue/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func candidateAt(lat, lng float64, title string, reportedAt int64) issuemodels.Issue {
	issue := issueAt(lat, lng, "Garbage", title)
	issue.ID = primitive.NewObjectID()
	issue.Status = issuemodels.IssueStatusOpen
	issue.ReportedAt = reportedAt
	return issue
}

func TestRankDuplicates_SubjectWithoutLocation(t *testing.T) {
	subject := issuemodels.Issue{ID: primitive.NewObjectID(), Category: "Garbage"}
	candidates := []issuemodels.Issue{candidateAt(28.6139, 77.2090, "Overflowing bin", 1000)}

	if got := RankDuplicates(subject, candidates); got != nil {
		t.Errorf("Subject không có location phải trả về rỗng, got %v", got)
	}
}

func TestRankDuplicates_StrictSevenDayCutoff(t *testing.T) {
	now := time.Now().UnixMilli()
	subject := issueAt(28.6139, 77.2090, "Garbage", "Overflowing bin near park")
	subject.ID = primitive.NewObjectID()
	subject.ReportedAt = now

	cutoff := now - duplicateWindowMillis
	atCutoff := candidateAt(28.6139, 77.2090, "Overflowing bin near park", cutoff)
	insideWindow := candidateAt(28.6139, 77.2090, "Overflowing bin near park", cutoff+1)

	matches := RankDuplicates(subject, []issuemodels.Issue{atCutoff, insideWindow})
	if len(matches) != 1 {
		t.Fatalf("Chỉ ứng viên trong cửa sổ 7 ngày (mốc cắt cứng) được giữ, got %d matches", len(matches))
	}
	if matches[0].IssueID != insideWindow.ID {
		t.Error("Ứng viên đúng mốc cắt (reportedAt == cutoff) phải bị loại")
	}
}

func TestRankDuplicates_DropsBelowThreshold(t *testing.T) {
	now := time.Now().UnixMilli()
	subject := issueAt(28.6139, 77.2090, "Garbage", "Overflowing bin near park")
	subject.ID = primitive.NewObjectID()
	subject.ReportedAt = now

	// Cùng vị trí, cùng title nhưng khác category: 0 + 0.3 + 0.3 = 0.6 → vừa chạm ngưỡng, giữ
	strong := candidateAt(28.6139, 77.2090, "Overflowing bin near park", now-1000)
	strong.Category = "Sanitation"
	// Khác category, xa, title rời rạc → dưới ngưỡng
	weak := candidateAt(28.9000, 77.9000, "Broken street light", now-1000)
	weak.Category = "Lighting"

	matches := RankDuplicates(subject, []issuemodels.Issue{weak, strong})
	if len(matches) != 1 {
		t.Fatalf("Chỉ ứng viên đạt ngưỡng %v được giữ, got %d matches", DuplicateScoreThreshold, len(matches))
	}
	if matches[0].IssueID != strong.ID {
		t.Error("Ứng viên dưới ngưỡng phải bị loại")
	}
}

func TestRankDuplicates_SortsByScoreDescending(t *testing.T) {
	now := time.Now().UnixMilli()
	subject := issueAt(28.6139, 77.2090, "Garbage", "Overflowing bin near park")
	subject.ID = primitive.NewObjectID()
	subject.ReportedAt = now

	// Trùng hoàn toàn → 1.0
	exact := candidateAt(28.6139, 77.2090, "Overflowing bin near park", now-1000)
	// Cách ~50 m, title hơi khác → thấp hơn
	near := candidateAt(28.61435, 77.2090, "Overflowing bin park area", now-2000)

	matches := RankDuplicates(subject, []issuemodels.Issue{near, exact})
	if len(matches) != 2 {
		t.Fatalf("Cả hai ứng viên phải đạt ngưỡng, got %d matches", len(matches))
	}
	if matches[0].IssueID != exact.ID {
		t.Errorf("Match điểm cao nhất phải đứng đầu, got score %v trước %v", matches[0].Score, matches[1].Score)
	}
	if matches[0].Score < matches[1].Score {
		t.Error("Danh sách match phải xếp theo điểm giảm dần")
	}
}

func TestRankDuplicates_ExcludesSelfAndMissingLocation(t *testing.T) {
	now := time.Now().UnixMilli()
	subject := issueAt(28.6139, 77.2090, "Garbage", "Overflowing bin near park")
	subject.ID = primitive.NewObjectID()
	subject.ReportedAt = now

	self := subject
	noLocation := issuemodels.Issue{
		ID:         primitive.NewObjectID(),
		Category:   "Garbage",
		Title:      "Overflowing bin near park",
		Status:     issuemodels.IssueStatusOpen,
		ReportedAt: now - 1000,
	}

	if got := RankDuplicates(subject, []issuemodels.Issue{self, noLocation}); len(got) != 0 {
		t.Errorf("Chính subject và ứng viên thiếu location phải bị loại, got %d matches", len(got))
	}
}

func TestRankDuplicates_DistanceRoundedToMeter(t *testing.T) {
	now := time.Now().UnixMilli()
	subject := issueAt(28.6139, 77.2090, "Garbage", "Overflowing bin near park")
	subject.ID = primitive.NewObjectID()
	subject.ReportedAt = now

	near := candidateAt(28.61435, 77.2090, "Overflowing bin park area", now-1000)

	matches := RankDuplicates(subject, []issuemodels.Issue{near})
	if len(matches) != 1 {
		t.Fatalf("Ứng viên ~50 m cùng category phải đạt ngưỡng, got %d matches", len(matches))
	}
	match := matches[0]
	if match.DistanceMeters != float64(int64(match.DistanceMeters)) {
		t.Errorf("DistanceMeters phải làm tròn tới mét, got %v", match.DistanceMeters)
	}
	if match.DistanceMeters < 45 || match.DistanceMeters > 55 {
		t.Errorf("DistanceMeters phải ~50 m, got %v", match.DistanceMeters)
	}
	if match.Category != "Garbage" {
		t.Errorf("Match phải mang category của ứng viên, got %q", match.Category)
	}
}

func flaggedMatch(issueID primitive.ObjectID, score float64) DuplicateMatch {
	return DuplicateMatch{IssueID: issueID, Score: score, Category: "Garbage"}
}

func TestFlagAsDuplicate_RepeatDoesNotDuplicateAuditComment(t *testing.T) {
	now := time.Now().UnixMilli()
	subject := candidateAt(28.6139, 77.2090, "Overflowing bin near park", now)
	original := candidateAt(28.6139, 77.2090, "Overflowing bin near park", now-1000)
	store := newMemIssueStore(subject, original)
	comments := &memCommenter{}
	detector := NewDuplicateDetectorWith(store, comments)

	match := flaggedMatch(original.ID, 0.85)
	if err := detector.FlagAsDuplicate(context.Background(), subject, match); err != nil {
		t.Fatalf("Lần gắn cờ đầu trả lỗi: %v", err)
	}

	// Retry cùng match: cờ đã đúng, phải là no-op im lặng
	if err := detector.FlagAsDuplicate(context.Background(), subject, match); err != nil {
		t.Fatalf("Gắn cờ lặp lại phải là no-op, got lỗi: %v", err)
	}
	if store.flagWrites != 1 {
		t.Errorf("Chỉ được ghi cờ đúng một lần, got %d", store.flagWrites)
	}
	if len(comments.comments) != 1 {
		t.Fatalf("Không được ghi thêm audit comment khi lặp, got %d", len(comments.comments))
	}
	want := fmt.Sprintf("Possible duplicate of issue %s (85%% match)", original.ID.Hex())
	if got := comments.comments[0].Body; got != want {
		t.Errorf("Nội dung audit comment sai: got %q, muốn %q", got, want)
	}
}

func TestClearDuplicateFlag_IsIdempotent(t *testing.T) {
	now := time.Now().UnixMilli()
	subject := candidateAt(28.6139, 77.2090, "Overflowing bin near park", now)
	original := candidateAt(28.6139, 77.2090, "Overflowing bin near park", now-1000)
	store := newMemIssueStore(subject, original)
	detector := NewDuplicateDetectorWith(store, &memCommenter{})

	if err := detector.FlagAsDuplicate(context.Background(), subject, flaggedMatch(original.ID, 0.85)); err != nil {
		t.Fatalf("Gắn cờ trả lỗi: %v", err)
	}

	if err := detector.ClearDuplicateFlag(context.Background(), subject.ID); err != nil {
		t.Fatalf("Gỡ cờ trả lỗi: %v", err)
	}
	if store.issues[subject.ID].DuplicateOfID != nil {
		t.Error("Cờ trùng lặp phải được gỡ khỏi issue")
	}

	// Gỡ lần hai khi không còn cờ: kết quả cuối như nhau, không lỗi
	if err := detector.ClearDuplicateFlag(context.Background(), subject.ID); err != nil {
		t.Fatalf("Gỡ cờ lặp lại phải là no-op, got lỗi: %v", err)
	}
	if store.clearWrites != 1 {
		t.Errorf("Chỉ được ghi gỡ cờ đúng một lần, got %d", store.clearWrites)
	}
}

func TestProcessNewIssue_FlagsOnlyTopMatch(t *testing.T) {
	now := time.Now().UnixMilli()
	subject := candidateAt(28.6139, 77.2090, "Overflowing bin near park", now)
	// Trùng hoàn toàn → score 1.0
	strong := candidateAt(28.6139, 77.2090, "Overflowing bin near park", now-1000)
	// Cùng vị trí, title rời rạc hơn nhưng vẫn vượt ngưỡng
	weaker := candidateAt(28.6139, 77.2090, "Garbage bin near the park overflowing", now-2000)
	store := newMemIssueStore(subject, strong, weaker)
	comments := &memCommenter{}
	detector := NewDuplicateDetectorWith(store, comments)

	detector.ProcessNewIssue(context.Background(), subject.ID)

	got := store.issues[subject.ID]
	if got.DuplicateOfID == nil {
		t.Fatal("Issue mới phải được gắn cờ trùng lặp")
	}
	if *got.DuplicateOfID != strong.ID {
		t.Errorf("Cờ phải trỏ tới match điểm cao nhất %s, got %s", strong.ID.Hex(), got.DuplicateOfID.Hex())
	}
	if store.flagWrites != 1 {
		t.Errorf("Chỉ gắn cờ theo match tốt nhất, got %d lần ghi", store.flagWrites)
	}
	if len(comments.comments) != 1 {
		t.Errorf("Chỉ một audit comment cho match tốt nhất, got %d", len(comments.comments))
	}
}

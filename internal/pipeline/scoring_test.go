// Package pipeline - Test hàm chấm điểm trùng lặp thuần túy.
package pipeline

import (
	"math"
	"testing"

	issuemodels "civic_admin/internal/api/issue/models"
)

func issueAt(lat, lng float64, category, title string) issuemodels.Issue {
	return issuemodels.Issue{
		Category: category,
		Title:    title,
		Location: &issuemodels.GeoPoint{Lat: lat, Lng: lng},
	}
}

func TestScore_IdenticalIssuesCapAtOne(t *testing.T) {
	a := issueAt(28.6139, 77.2090, "Garbage", "Overflowing bin near park")
	b := issueAt(28.6139, 77.2090, "Garbage", "Overflowing bin near park")

	got := Score(a, b)
	if got != 1.0 {
		t.Errorf("Score hai issue giống hệt nhau phải bằng 1.0, got %v", got)
	}
}

func TestScore_NoOverlapIsZero(t *testing.T) {
	a := issueAt(28.6139, 77.2090, "Garbage", "Overflowing bin near park")
	b := issueAt(29.0000, 78.0000, "Roads", "Large pothole on highway")

	got := Score(a, b)
	if got != 0 {
		t.Errorf("Score của hai issue không có điểm chung phải bằng 0, got %v", got)
	}
}

func TestScore_Symmetric(t *testing.T) {
	a := issueAt(28.6139, 77.2090, "Garbage", "Overflowing bin near park")
	b := issueAt(28.61435, 77.2090, "Garbage", "Overflowing bin park area")

	if Score(a, b) != Score(b, a) {
		t.Errorf("Score phải đối xứng: Score(a,b)=%v, Score(b,a)=%v", Score(a, b), Score(b, a))
	}
}

func TestScore_MissingLocationIsZero(t *testing.T) {
	a := issuemodels.Issue{Category: "Garbage", Title: "Overflowing bin"}
	b := issueAt(28.6139, 77.2090, "Garbage", "Overflowing bin")

	if got := Score(a, b); got != 0 {
		t.Errorf("Score khi một issue thiếu location phải bằng 0, got %v", got)
	}
	if got := Score(b, a); got != 0 {
		t.Errorf("Score khi issue còn lại thiếu location phải bằng 0, got %v", got)
	}
}

func TestScore_EmptyTitlesContributeNothing(t *testing.T) {
	// Cùng category, cùng tọa độ, title rỗng: 0.4 + 0.3 + 0 = 0.7
	a := issueAt(28.6139, 77.2090, "Garbage", "")
	b := issueAt(28.6139, 77.2090, "Garbage", "")

	got := Score(a, b)
	if got != 0.7 {
		t.Errorf("Score với title rỗng cả hai phía phải bằng 0.7, got %v", got)
	}
}

func TestScore_BeyondProximityRadius(t *testing.T) {
	// Cách nhau ~222 m: ngoài bán kính 100 m, chỉ còn điểm category
	a := issueAt(28.6139, 77.2090, "Garbage", "x")
	b := issueAt(28.6159, 77.2090, "Garbage", "y")

	got := Score(a, b)
	if got != 0.4 {
		t.Errorf("Score ngoài bán kính 100 m chỉ còn điểm category 0.4, got %v", got)
	}
}

func TestScore_RoundedToTwoDecimals(t *testing.T) {
	a := issueAt(28.6139, 77.2090, "Garbage", "Overflowing bin near park")
	b := issueAt(28.61435, 77.2090, "Garbage", "Overflowing bin park area")

	got := Score(a, b)
	if math.Abs(got*100-math.Round(got*100)) > 1e-9 {
		t.Errorf("Score phải làm tròn 2 chữ số thập phân, got %v", got)
	}
}

func TestScore_GarbageBinExample(t *testing.T) {
	// Subject và candidate cách nhau ~50 m, cùng category, title gần giống
	subject := issueAt(28.6139, 77.2090, "Garbage", "Overflowing bin near park")
	candidate := issueAt(28.61435, 77.2090, "Garbage", "Overflowing bin park area")

	distance := DistanceMeters(*subject.Location, *candidate.Location)
	if distance < 45 || distance > 55 {
		t.Fatalf("Khoảng cách test case phải ~50 m, got %v", distance)
	}

	got := Score(subject, candidate)
	if got < DuplicateScoreThreshold {
		t.Errorf("Score của cặp issue gần như trùng nhau phải >= %v, got %v", DuplicateScoreThreshold, got)
	}
}

func TestDistanceMeters_KnownDistance(t *testing.T) {
	// 0.001 độ vĩ tuyến ~ 111.19 m với R = 6,371,000 m
	a := issuemodels.GeoPoint{Lat: 10.0, Lng: 106.0}
	b := issuemodels.GeoPoint{Lat: 10.001, Lng: 106.0}

	got := DistanceMeters(a, b)
	if math.Abs(got-111.19) > 0.5 {
		t.Errorf("DistanceMeters cho 0.001 độ vĩ tuyến phải ~111.19 m, got %v", got)
	}
}

func TestDistanceMeters_ZeroForSamePoint(t *testing.T) {
	p := issuemodels.GeoPoint{Lat: 28.6139, Lng: 77.2090}
	if got := DistanceMeters(p, p); got != 0 {
		t.Errorf("DistanceMeters của cùng một điểm phải bằng 0, got %v", got)
	}
}

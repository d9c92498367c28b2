// Package pipeline chứa engine phản ứng của hệ thống: phân công issue theo rule
// table, chấm điểm trùng lặp và dispatch automation rule khi issue thay đổi.
package pipeline

import (
	"math"
	"strings"

	issuemodels "civic_admin/internal/api/issue/models"
)

// Trọng số chấm điểm trùng lặp. Tổng đúng bằng 1.0 nên điểm không bao giờ vượt 1.
const (
	weightCategory  = 0.4
	weightProximity = 0.3
	weightTitle     = 0.3

	// proximityRadiusMeters là bán kính còn tính điểm khoảng cách: 0 m được trọn
	// 0.3, giảm tuyến tính về 0 tại đúng 100 m, ngoài 100 m không còn điểm.
	proximityRadiusMeters = 100.0

	// earthRadiusMeters là bán kính Trái Đất dùng cho haversine
	earthRadiusMeters = 6371000.0

	// DuplicateScoreThreshold là ngưỡng coi hai issue là trùng lặp
	DuplicateScoreThreshold = 0.6
)

// Score chấm điểm khả năng trùng lặp giữa hai issue, thuần túy và đối xứng,
// kết quả trong [0,1] làm tròn 2 chữ số thập phân. Chỉ xác định khi cả hai
// issue có location; thiếu location trả về 0.
func Score(a, b issuemodels.Issue) float64 {
	if a.Location == nil || b.Location == nil {
		return 0
	}

	score := 0.0

	// Trùng category (so khớp không phân biệt hoa thường)
	if strings.EqualFold(a.Category, b.Category) {
		score += weightCategory
	}

	// Khoảng cách địa lý, giảm tuyến tính trong bán kính 100 m
	distance := DistanceMeters(*a.Location, *b.Location)
	if distance <= proximityRadiusMeters {
		score += weightProximity * (1 - distance/proximityRadiusMeters)
	}

	// Jaccard trên tập từ của title
	score += weightTitle * titleSimilarity(a.Title, b.Title)

	return math.Round(score*100) / 100
}

// DistanceMeters tính khoảng cách great-circle giữa hai tọa độ theo công thức haversine
func DistanceMeters(a, b issuemodels.GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

// titleSimilarity tính Jaccard similarity giữa hai tập từ của title:
// tách theo whitespace, lowercase, bỏ token có độ dài ≤ 2. Hai tập cùng rỗng → 0.
func titleSimilarity(a, b string) float64 {
	setA := titleTokens(a)
	setB := titleTokens(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	intersection := 0
	for token := range setA {
		if setB[token] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}

	return float64(intersection) / float64(union)
}

// titleTokens tách title thành tập token đã lowercase, bỏ token ngắn (≤ 2 ký tự)
func titleTokens(title string) map[string]bool {
	tokens := make(map[string]bool)
	for _, token := range strings.Fields(strings.ToLower(title)) {
		if len(token) > 2 {
			tokens[token] = true
		}
	}
	return tokens
}

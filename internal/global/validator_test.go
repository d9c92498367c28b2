// Package global - Test custom validator cho tọa độ GeoPoint.
package global

import (
	"testing"

	issuemodels "civic_admin/internal/api/issue/models"
)

func TestValidateGeoPoint_CoordinateRanges(t *testing.T) {
	InitValidator()

	cases := []struct {
		name    string
		point   issuemodels.GeoPoint
		wantErr bool
	}{
		{"tọa độ hợp lệ", issuemodels.GeoPoint{Lat: 28.6139, Lng: 77.2090}, false},
		{"biên latitude", issuemodels.GeoPoint{Lat: 90, Lng: 0}, false},
		{"biên longitude", issuemodels.GeoPoint{Lat: 0, Lng: -180}, false},
		{"latitude vượt biên", issuemodels.GeoPoint{Lat: 91, Lng: 0}, true},
		{"longitude vượt biên", issuemodels.GeoPoint{Lat: 0, Lng: -181}, true},
	}

	for _, tc := range cases {
		err := Validate.Struct(tc.point)
		if tc.wantErr && err == nil {
			t.Errorf("%s: phải bị từ chối nhưng validate pass", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("%s: phải pass nhưng bị từ chối: %v", tc.name, err)
		}
	}
}

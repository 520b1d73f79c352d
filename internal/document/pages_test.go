package document

import (
	"errors"
	"reflect"
	"testing"
)

func TestParsePageSelection(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{"", nil, false},
		{"   ", nil, false},
		{"3", []int{2}, false},
		{"1,2,5", []int{0, 1, 4}, false},
		{"1, 2,", []int{0, 1}, false},
		{"2-4", []int{1, 2, 3}, false},
		{" 2 - 4 ", []int{1, 2, 3}, false},
		{"1,2-3", nil, true},
		{"0", nil, true},
		{"1,0", nil, true},
		{"4-2", nil, true},
		{"3-3", nil, true},
		{"abc", nil, true},
		{"1-2-3", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePageSelection(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPageSelection) {
					t.Errorf("Expected ErrInvalidPageSelection, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

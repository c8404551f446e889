package fleet

import "testing"

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name    string
		vehicle Vehicle
		want    string
	}{
		{
			name:    "name wins",
			vehicle: Vehicle{ID: "123", Name: "Truck 4021", VIN: "1FUJGLDR8CSBU4031"},
			want:    "Truck 4021",
		},
		{
			name:    "vin when nameless",
			vehicle: Vehicle{ID: "123", VIN: "1FUJGLDR8CSBU4031"},
			want:    "1FUJGLDR8CSBU4031",
		},
		{
			name:    "id as last resort",
			vehicle: Vehicle{ID: "123"},
			want:    "123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.vehicle.DisplayName(); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseSearchField(t *testing.T) {
	tests := []struct {
		in      string
		want    SearchField
		wantErr bool
	}{
		{"", FieldAll, false},
		{"all", FieldAll, false},
		{"name", FieldName, false},
		{"NAME", FieldName, false},
		{"vin", FieldVIN, false},
		{"plate", FieldPlate, false},
		{"license", FieldPlate, false},
		{"color", FieldAll, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSearchField(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSearchField(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseSearchField(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMatchesField(t *testing.T) {
	v := Vehicle{
		ID:           "281474",
		Name:         "Truck 4021",
		VIN:          "1FUJGLDR8CSBU4031",
		LicensePlate: "KTX4821",
	}

	tests := []struct {
		name  string
		query string
		field SearchField
		want  bool
	}{
		{"name substring", "4021", FieldName, true},
		{"name case-insensitive", "truck", FieldName, true},
		{"name miss", "van", FieldName, false},
		{"vin substring", "8csbu", FieldVIN, true},
		{"vin against name field", "8csbu", FieldName, false},
		{"plate substring", "ktx", FieldPlate, true},
		{"all matches vin", "8csbu", FieldAll, true},
		{"all matches plate", "4821", FieldAll, true},
		{"all miss", "zzz", FieldAll, false},
		{"empty query never matches", "", FieldAll, false},
		{"whitespace query never matches", "   ", FieldAll, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.MatchesField(tt.query, tt.field); got != tt.want {
				t.Errorf("MatchesField(%q, %q) = %v, want %v", tt.query, tt.field, got, tt.want)
			}
		})
	}
}

func TestMetersToMiles(t *testing.T) {
	tests := []struct {
		name   string
		meters float64
		want   int64
	}{
		{"exact thousand", 1609340, 1000},
		{"one mile", 1609.34, 1},
		{"rounds down", 800, 0},
		{"rounds up", 810, 1},
		{"zero", 0, 0},
		{"large odometer", 321868000, 200000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MetersToMiles(tt.meters); got != tt.want {
				t.Errorf("MetersToMiles(%v) = %d, want %d", tt.meters, got, tt.want)
			}
		})
	}
}

func TestGPSSampleValid(t *testing.T) {
	tests := []struct {
		name   string
		sample *GPSSample
		want   bool
	}{
		{"nil sample", nil, false},
		{"zero-zero fix", &GPSSample{}, false},
		{"real fix", &GPSSample{Latitude: 36.17, Longitude: -115.14}, true},
		{"equator longitude only", &GPSSample{Longitude: -115.14}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sample.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

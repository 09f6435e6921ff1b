package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
)

func TestDerive(t *testing.T) {
	tests := []struct {
		name    string
		in      Profile
		income  float64
		saving  float64
		risk    string
		years   int
	}{
		{
			name: "lowest brackets",
			in: Profile{
				IncomeAnswer:   "₹10,000 - ₹25,000",
				SavingAnswer:   "₹5,000 - ₹15,000",
				RiskAnswer:     "I avoid risk completely",
				DurationAnswer: "1-3 years",
			},
			income: 20000, saving: 10000, risk: "Low", years: 2,
		},
		{
			name: "middle brackets",
			in: Profile{
				IncomeAnswer:   "₹50,000 - ₹1,00,000",
				SavingAnswer:   "₹15,000 - ₹50,000",
				RiskAnswer:     "I can take a little risk",
				DurationAnswer: "3-7 years",
			},
			income: 75000, saving: 32500, risk: "Moderately Low", years: 5,
		},
		{
			name: "highest brackets",
			in: Profile{
				IncomeAnswer:   "More than ₹1,00,000",
				SavingAnswer:   "₹50,000+",
				RiskAnswer:     "I am comfortable with high risks",
				DurationAnswer: "7+ years",
			},
			income: 150000, saving: 60000, risk: "High", years: 10,
		},
		{
			name: "moderate risk",
			in: Profile{
				RiskAnswer:     "I am okay with moderate risk",
				DurationAnswer: "3-7 years",
			},
			income: 50000, saving: 10000, risk: "Moderate", years: 5,
		},
		{
			name:   "empty answers fall to questionnaire defaults",
			in:     Profile{},
			income: 50000, saving: 10000, risk: "Moderate", years: 10,
		},
		{
			name: "unrecognized answers take the fallback values",
			in: Profile{
				IncomeAnswer:   "prefer not to say",
				SavingAnswer:   "prefer not to say",
				RiskAnswer:     "prefer not to say",
				DurationAnswer: "prefer not to say",
			},
			income: 50000, saving: 5000, risk: "Moderate", years: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.in
			p.Derive()
			if p.Income != tt.income {
				t.Errorf("Income = %v, want %v", p.Income, tt.income)
			}
			if p.Saving != tt.saving {
				t.Errorf("Saving = %v, want %v", p.Saving, tt.saving)
			}
			if p.RiskAppetite != tt.risk {
				t.Errorf("RiskAppetite = %q, want %q", p.RiskAppetite, tt.risk)
			}
			if p.DurationYears != tt.years {
				t.Errorf("DurationYears = %d, want %d", p.DurationYears, tt.years)
			}
		})
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "profiles.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreSaveGetDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get on empty store: err = %v, want ErrNotFound", err)
	}

	p := &Profile{
		UserID:       "u1",
		IncomeAnswer: "More than ₹1,00,000",
		RiskAnswer:   "I am comfortable with high risks",
	}
	if err := s.Save(ctx, p); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Income != 150000 || got.RiskAppetite != "High" {
		t.Errorf("derived fields not persisted: %+v", got)
	}

	// Upsert replaces the row for the same user.
	p.IncomeAnswer = "₹10,000 - ₹25,000"
	if err := s.Save(ctx, p); err != nil {
		t.Fatalf("Save (update): %v", err)
	}
	got, err = s.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get after update: %v", err)
	}
	if got.Income != 20000 {
		t.Errorf("Income after update = %v, want 20000", got.Income)
	}

	if err := s.Delete(ctx, "u1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "u1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete: err = %v, want ErrNotFound", err)
	}
	// Deleting again is fine.
	if err := s.Delete(ctx, "u1"); err != nil {
		t.Errorf("Delete (missing): %v", err)
	}
}

func TestHandler(t *testing.T) {
	s := newTestStore(t)
	mux := http.NewServeMux()
	NewHandler(s, nil).Register(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	body, _ := json.Marshal(profileRequest{
		IncomeAnswer:   "₹25,000 - ₹50,000",
		SavingAnswer:   "₹15,000 - ₹50,000",
		RiskAnswer:     "I can take a little risk",
		DurationAnswer: "3-7 years",
	})
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/profiles/u1", bytes.NewReader(body))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT status = %d", resp.StatusCode)
	}

	getResp, err := http.Get(srv.URL + "/api/profiles/u1")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer getResp.Body.Close()
	var got Profile
	if err := json.NewDecoder(getResp.Body).Decode(&got); err != nil {
		t.Fatalf("decoding GET body: %v", err)
	}
	if got.Income != 37500 || got.RiskAppetite != "Moderately Low" || got.DurationYears != 5 {
		t.Errorf("GET returned %+v", got)
	}

	missing, err := http.Get(srv.URL + "/api/profiles/nobody")
	if err != nil {
		t.Fatalf("GET missing: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("GET missing status = %d, want 404", missing.StatusCode)
	}

	del, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/profiles/u1", nil)
	delResp, err := http.DefaultClient.Do(del)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	delResp.Body.Close()
	if delResp.StatusCode != http.StatusNoContent {
		t.Errorf("DELETE status = %d, want 204", delResp.StatusCode)
	}
}

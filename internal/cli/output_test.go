package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutritrack/nutrition-core/internal/domain/account"
	"github.com/nutritrack/nutrition-core/internal/domain/nutrition"
)

func TestPrinter_NoColorForBuffers(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Success("Logged in")
	p.Error("Sorry, food \"9\" not found.")
	p.Warning("Offline")
	p.Info("Hint")

	out := buf.String()
	assert.NotContains(t, out, "\033[")
	assert.Contains(t, out, "✓ Logged in\n")
	assert.Contains(t, out, "✗ Sorry, food \"9\" not found.\n")
}

func TestPrinter_User(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).User(account.User{ID: "U1", Email: "a@b.com"})

	assert.Equal(t, "a@b.com <a@b.com>\nid: U1\n", buf.String())
}

func TestPrinter_Food(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).Food(nutrition.FoodInfo{Barcode: "0001", Name: "Banana", Calories: 105, Protein: 1.25, Carbs: 27, ServingSize: "1 medium"})

	out := buf.String()
	assert.Contains(t, out, "Banana (0001)")
	assert.Contains(t, out, "serving: 1 medium")
	assert.Contains(t, out, "calories  105")
	assert.Contains(t, out, "protein   1.2g")
	assert.Contains(t, out, "fat       0g")
}

func TestPrinter_Ledger(t *testing.T) {
	var buf bytes.Buffer
	l := nutrition.DailyLedger{
		TotalCalories: 157.5, TotalProtein: 1.5, TotalCarbs: 40.5,
		Entries: []nutrition.FoodEntry{{ID: "E1", FoodName: "Banana", Quantity: 1.5, Calories: 157.5, Protein: 1.5, Carbs: 40.5}},
	}
	NewPrinter(&buf).Ledger("2026-10-15", l, 2000)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Food log for 2026-10-15", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "ID"))
	assert.Contains(t, lines[2], "Banana")
	assert.Equal(t, "Total: 157.5 kcal, 1.5g protein, 40.5g carbs, 0g fat", lines[3])
	assert.Contains(t, lines[4], "8% of 2000 kcal")
}

func TestPrinter_EmptyLedger(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).Ledger("2026-10-15", nutrition.EmptyLedger(), 0)

	assert.Equal(t, "Food log for 2026-10-15\nNo entries yet.\nTotal: 0 kcal, 0g protein, 0g carbs, 0g fat\n", buf.String())
}

func TestCalorieBar(t *testing.T) {
	p := NewPrinter(&bytes.Buffer{})

	tests := []struct {
		consumed, goal float64
		filled         int
		suffix         string
	}{
		{0, 2000, 0, "0% of 2000 kcal"},
		{1000, 2000, 5, "50% of 2000 kcal"},
		{3000, 2000, 10, "150% of 2000 kcal"},
	}

	for _, tt := range tests {
		bar := p.CalorieBar(tt.consumed, tt.goal, 10)
		if got := strings.Count(bar, "█"); got != tt.filled {
			t.Errorf("CalorieBar(%v, %v) filled = %d, want %d", tt.consumed, tt.goal, got, tt.filled)
		}
		if !strings.HasSuffix(bar, tt.suffix) {
			t.Errorf("CalorieBar(%v, %v) = %q, want suffix %q", tt.consumed, tt.goal, bar, tt.suffix)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	tests := map[float64]string{0: "0", 105: "105", 1.25: "1.2", 40.5: "40.5", 2.96: "3"}
	for in, want := range tests {
		if got := formatAmount(in); got != want {
			t.Errorf("formatAmount(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestSpinner_DisabledOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner(&buf, "Loading")
	s.Start()
	s.Stop()
	assert.Empty(t, buf.String())
}

func TestGenerateCompletion(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish"} {
		var buf bytes.Buffer
		require.NoError(t, GenerateCompletion(&buf, shell))
		assert.Contains(t, buf.String(), "nutrition")
	}
	assert.Error(t, GenerateCompletion(&bytes.Buffer{}, "tcsh"))
}

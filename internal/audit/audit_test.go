package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	"tradegate/internal/config"
	"tradegate/internal/models"
)

func testAuditConfig(t *testing.T) config.AuditConfig {
	t.Helper()
	return config.AuditConfig{
		LogDir:     t.TempDir(),
		MaxSize:    10,
		MaxBackups: 1,
		MaxAge:     1,
	}
}

func TestLogger_WritesJSONL(t *testing.T) {
	cfg := testAuditConfig(t)
	logger, err := NewLogger(cfg, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer logger.Close()

	entries := []models.AuditEntry{
		{
			Stage:                models.StageEnforcement,
			SignalID:             "SIG-1",
			AccountID:            "acct-1",
			Venue:                "kraken",
			AttemptedTradingType: models.TradingTypeMargin,
			AllowedTradingTypes:  []models.TradingType{models.TradingTypeSpot},
			LeverageAttempted:    3,
			LeverageAllowed:      1,
			Outcome:              "corrected",
			Detail:               "trading type margin not allowed, corrected to spot",
		},
		{
			Stage:    models.StageExecution,
			SignalID: "SIG-1",
			Outcome:  "submitted",
		},
	}
	for _, e := range entries {
		logger.Record(e)
	}

	f, err := os.Open(filepath.Join(cfg.LogDir, "audit.log"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var read []models.AuditEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e models.AuditEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("line not valid JSON: %v", err)
		}
		read = append(read, e)
	}
	if len(read) != 2 {
		t.Fatalf("entries = %d, want 2", len(read))
	}
	if read[0].Outcome != "corrected" || read[1].Outcome != "submitted" {
		t.Error("entries out of order or corrupted")
	}
	if read[0].Timestamp.IsZero() {
		t.Error("zero timestamp not filled in")
	}
}

func TestStageClock_StrictlyMonotonicPerSignal(t *testing.T) {
	clock := NewStageClock()

	prev := clock.Next("SIG-1")
	for i := 0; i < 1000; i++ {
		next := clock.Next("SIG-1")
		if !next.After(prev) {
			t.Fatalf("timestamp %v not after %v", next, prev)
		}
		prev = next
	}
}

func TestStageClock_IndependentPerSignal(t *testing.T) {
	clock := NewStageClock()

	a1 := clock.Next("SIG-A")
	clock.Next("SIG-B")
	a2 := clock.Next("SIG-A")
	if !a2.After(a1) {
		t.Error("per-signal ordering broken by interleaved signal")
	}

	clock.Forget("SIG-A")
	// After Forget the signal starts fresh; only wall clock ordering
	// applies.
	if clock.Next("SIG-A").IsZero() {
		t.Error("clock returned zero time after Forget")
	}
}

// Property: for any interleaving of signals, the timestamps issued to each
// signal are strictly increasing in issue order.
func TestProperty_StageClockOrdersEverySignal(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("issue order is timestamp order per signal", prop.ForAll(
		func(sequence []int) bool {
			clock := NewStageClock()
			last := make(map[string]time.Time)
			for _, n := range sequence {
				signalID := fmt.Sprintf("SIG-%d", n%5)
				ts := clock.Next(signalID)
				if prev, ok := last[signalID]; ok && !ts.After(prev) {
					return false
				}
				last[signalID] = ts
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 100)),
	))

	properties.TestingRun(t)
}

package tickerfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadTrailingEmptyLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tickers.txt")
	if err := os.WriteFile(path, []byte("AAPL\nIBM\nTSLA\n\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	u, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := Universe{"AAPL", "IBM", "TSLA"}
	if len(u) != len(want) {
		t.Fatalf("Load() = %v, want %v", u, want)
	}
	for i := range want {
		if u[i] != want[i] {
			t.Fatalf("Load()[%d] = %q, want %q", i, u[i], want[i])
		}
	}

	if got := u.CSV(); got != "AAPL,IBM,TSLA" {
		t.Fatalf("CSV() = %q, want %q", got, "AAPL,IBM,TSLA")
	}
}

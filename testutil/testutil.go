package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Header is the column row every generated dataset starts with.
const Header = "Province,District,Sub-district,Happy Block,Latitude,Longitude,Net Add,Potential Score,Port Use,Install," +
	"Market Share True (%),Market Share AIS (%),Market Share 3BB (%),Market Share NT (%)"

// SampleRows are hand-written rows with known values. Shares are ratios.
var SampleRows = []string{
	"South,Hat Yai,Kho Hong,HB-01,7.0100,100.4700,5,80,120,30,0.35,0.25,0.30,0.10",
	"South,Hat Yai,Kho Hong,HB-02,7.0200,100.4800,-3,45,60,12,0.20,0.40,0.30,0.10",
	"South,Hat Yai,Kho Hong,HB-03,7.0300,100.4900,0,10,15,4,0.10,0.50,0.30,0.10",
	"South,Hat Yai,Khlong Hae,HB-04,7.0400,100.4600,8,95,200,55,0.5555,0.1445,0.20,0.10",
	"South,Mueang Songkhla,Bo Yang,HB-05,7.1900,100.5900,2,60,80,20,0.25,0.25,0.25,0.25",
	"Andaman,Mueang Phuket,Talat Yai,HB-06,7.8800,98.3900,-6,30,40,10,0,0.60,0.30,0.10",
	"Andaman,Kathu,Patong,HB-07,7.8960,98.2960,12,100,300,90,1,0,0,0",
}

// SampleCSV returns the header followed by SampleRows.
func SampleCSV() string {
	return Header + "\n" + strings.Join(SampleRows, "\n") + "\n"
}

// WriteFile writes content to name inside a per-test temporary directory and
// returns the path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

// GenerateCSV builds a deterministic dataset of numRows rows spread over two
// provinces, three districts each, four sub-districts per district and a
// distinct happy block per row.
func GenerateCSV(numRows int) string {
	provinces := []string{"South", "Andaman"}

	var content strings.Builder
	content.WriteString(Header)
	content.WriteString("\n")
	for i := 0; i < numRows; i++ {
		p := provinces[i%len(provinces)]
		d := fmt.Sprintf("%s-D%d", p, (i/2)%3)
		s := fmt.Sprintf("%s-S%d", d, (i/6)%4)
		hb := fmt.Sprintf("HB-%05d", i)

		lat := 6.5 + float64(i%100)/100
		lon := 99.5 + float64(i%70)/100
		netAdd := (i % 21) - 10
		potential := (i * 7) % 101
		portUse := 10 + i%50
		install := i % 30
		shareTrue := float64(i%100) / 100
		shareAIS := (1 - shareTrue) / 2

		fmt.Fprintf(&content, "%s,%s,%s,%s,%.4f,%.4f,%d,%d,%d,%d,%.2f,%.4f,%.4f,%.2f\n",
			p, d, s, hb, lat, lon, netAdd, potential, portUse, install,
			shareTrue, shareAIS, shareAIS, 0.0)
	}
	return content.String()
}

// GenerateTestDataset writes a generated dataset file and returns its path and
// a cleanup function.
func GenerateTestDataset(t *testing.T, numRows int) (string, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "test_dataset_*.csv")
	if err != nil {
		t.Fatalf("Failed to create temp dataset file: %v", err)
	}

	if _, err := tmpFile.WriteString(GenerateCSV(numRows)); err != nil {
		t.Fatalf("Failed to write to temp dataset file: %v", err)
	}
	tmpFile.Close()

	cleanup := func() {
		os.Remove(tmpFile.Name())
	}
	return tmpFile.Name(), cleanup
}

// TempFilePath returns a cross-platform temporary file path
// with the given pattern. Does not create the file.
func TempFilePath(t *testing.T, pattern string) string {
	t.Helper()

	tmpFile, err := os.CreateTemp("", pattern)
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}

	path := tmpFile.Name()
	tmpFile.Close()
	os.Remove(path) // Remove immediately, just need the path

	return path
}

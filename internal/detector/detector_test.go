package detector

import (
	"strings"
	"testing"
)

func TestParseSplitsBlankLineSeparatedBlocks(t *testing.T) {
	input := "/a/1.txt\n/a/2.txt\n\n/b/3.txt\n"
	clusters, err := parse(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(clusters) != 2 {
		t.Fatalf("got %d clusters, want 2", len(clusters))
	}
	if len(clusters[0]) != 2 || clusters[0][0] != "/a/1.txt" || clusters[0][1] != "/a/2.txt" {
		t.Fatalf("clusters[0] = %v", clusters[0])
	}
	if len(clusters[1]) != 1 || clusters[1][0] != "/b/3.txt" {
		t.Fatalf("clusters[1] = %v", clusters[1])
	}
}

func TestParseSkipsLeadingAndTrailingBlankBlocks(t *testing.T) {
	input := "\n\n/a/1.txt\n\n\n/b/2.txt\n\n\n"
	clusters, err := parse(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(clusters) != 2 {
		t.Fatalf("got %d clusters, want 2: %v", len(clusters), clusters)
	}
}

func TestParseTrimsTrailingCR(t *testing.T) {
	input := "/a/1.txt\r\n/a/2.txt\r\n"
	clusters, err := parse(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(clusters) != 1 || clusters[0][0] != "/a/1.txt" {
		t.Fatalf("clusters = %v", clusters)
	}
}

func TestParseSingletonClusters(t *testing.T) {
	input := "/a/1.txt\n\n/a/2.txt\n\n/a/3.txt\n"
	clusters, err := parse(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if len(clusters) != 3 {
		t.Fatalf("got %d clusters, want 3 singletons: %v", len(clusters), clusters)
	}
}

func TestBuildInputEncodesOnePathPerLine(t *testing.T) {
	got := buildInput([]string{"/a/1.txt", "/b/2.txt"})
	want := "/a/1.txt\n/b/2.txt\n"
	if got != want {
		t.Fatalf("buildInput = %q, want %q", got, want)
	}
}

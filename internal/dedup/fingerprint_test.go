package dedup

import "testing"

func TestFingerprint_Stability(t *testing.T) {
	base := Fingerprint("Acme Corp", "AI Research Scientist", "San Francisco, CA")
	variants := [][3]string{
		{"acme corp", "ai research scientist", "san francisco, ca"},
		{"  ACME   CORP ", "AI  Research\tScientist ", " San Francisco , CA "},
		{"Acme Corp.", "AI Research Scientist", "San Francisco, CA 94105"},
		{"Acme Corp", "AI Research Scientist", "San Francisco (HQ), CA"},
		{"Acme Corp", "AI Research Scientist", "Suite 400, San Francisco, CA"},
		{"Acmé Corp", "AI Research Scientist", "San Francisco, California"},
	}
	for _, v := range variants {
		if got := Fingerprint(v[0], v[1], v[2]); got != base {
			t.Errorf("Fingerprint(%q, %q, %q) = %q, want %q", v[0], v[1], v[2], got, base)
		}
	}
}

func TestFingerprint_DistinguishesPostings(t *testing.T) {
	a := Fingerprint("Acme", "ML Engineer", "Berlin")
	if b := Fingerprint("Acme", "Senior ML Engineer", "Berlin"); a == b {
		t.Error("different titles share a fingerprint")
	}
	if b := Fingerprint("Acme", "ML Engineer", "Munich"); a == b {
		t.Error("different cities share a fingerprint")
	}
	if b := Fingerprint("Globex", "ML Engineer", "Berlin"); a == b {
		t.Error("different companies share a fingerprint")
	}
}

func TestLocationBucket(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Remote", RemoteBucket},
		{"Remote - USA", RemoteBucket},
		{"REMOTE (US only)", RemoteBucket},
		{"Anywhere", RemoteBucket},
		{"Work From Home", RemoteBucket},
		{"WFH", RemoteBucket},
		{"Distributed", RemoteBucket},
		{"Remote / Unspecified", RemoteBucket},
		{"New York, NY", "new york"},
		{"New York, NY 10001", "new york"},
		{"Floor 3, 1 Main St, Boston, MA", "1 main st"},
		{"Zürich, Switzerland", "zurich"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := LocationBucket(tt.in); got != tt.want {
			t.Errorf("LocationBucket(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

package normalize

import (
	"slices"
	"testing"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"2024-05-01T10:00:00Z", "2024-05-01T10:00:00Z"},
		{"2024-05-01T10:00:00-04:00", "2024-05-01T14:00:00Z"},
		{"2024-05-01", "2024-05-01T00:00:00Z"},
		{"Mon, 06 May 2024 09:30:00 +0000", "2024-05-06T09:30:00Z"},
		{"1700000000", "2023-11-14T22:13:20Z"},
		{"1700000000000", "2023-11-14T22:13:20Z"},
		{"3 days ago", "3 days ago"},
		{"  yesterday ", "yesterday"},
	}
	for _, tt := range tests {
		if got := NormalizeDate(tt.in); got != tt.want {
			t.Errorf("NormalizeDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		raw, base string
		want      string
		wantErr   bool
	}{
		{"https://Jobs.Example.com/a?id=1&utm_medium=x&gclid=2", "", "https://jobs.example.com/a?id=1", false},
		{"/jobs/view/9?trk=public", "https://www.linkedin.com", "https://www.linkedin.com/jobs/view/9", false},
		{"https://x.com/a#apply", "", "https://x.com/a", false},
		{"jobs/1", "", "", true},
		{"ftp://x.com/file", "", "", true},
	}
	for _, tt := range tests {
		got, err := CanonicalURL(tt.raw, tt.base)
		if (err != nil) != tt.wantErr {
			t.Errorf("CanonicalURL(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("CanonicalURL(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain   text\n here", "plain text here"},
		{"<p>Hello</p><p>World</p>", "Hello World"},
		{"&lt;p&gt;Encoded &amp;amp; twice&lt;/p&gt;", "Encoded & twice"},
		{"Tom &amp; Jerry", "Tom & Jerry"},
		{"<script>x()</script>Visible", "Visible"},
	}
	for _, tt := range tests {
		if got := CleanText(tt.in); got != tt.want {
			t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTagger(t *testing.T) {
	tagger := NewTagger(map[string]string{
		"machine learning": "ML",
		"LLM":              "ML",
		"pytorch":          "PyTorch",
		"senior":           "senior",
	}, 10)

	got := tagger.Tags("Senior LLM Engineer", "We use PyTorch daily and more text beyond the scan window: machine learning")
	want := []string{"ML", "senior"}
	if !slices.Equal(got, want) {
		t.Errorf("Tags = %v, want %v (pytorch and machine learning lie past the scan window)", got, want)
	}

	var nilTagger *Tagger
	if tags := nilTagger.Tags("x", "y"); tags != nil {
		t.Errorf("nil tagger returned %v", tags)
	}
}

func TestFormatSalary(t *testing.T) {
	tests := []struct {
		lo, hi, want string
	}{
		{"120000", "150000", "$120,000 - $150,000"},
		{"90000", "", "$90,000+"},
		{"0", "200000", "Up to $200,000"},
		{"", "", ""},
		{"abc", "0", ""},
		{"500", "", "$500+"},
	}
	for _, tt := range tests {
		if got := FormatSalary(tt.lo, tt.hi); got != tt.want {
			t.Errorf("FormatSalary(%q, %q) = %q, want %q", tt.lo, tt.hi, got, tt.want)
		}
	}
}

func TestInferWorkMode(t *testing.T) {
	tests := []struct {
		name                   string
		hint, loc, title, desc string
		want                   string
	}{
		{"explicit hint", "onsite", "Remote", "", "", WorkModeOnsite},
		{"location remote", "", "Remote - USA", "Engineer", "", WorkModeRemote},
		{"title hybrid", "", "Berlin", "Hybrid Data Scientist", "", WorkModeHybrid},
		{"description onsite", "", "Austin, TX", "Engineer", "This role is on-site.", WorkModeOnsite},
		{"unknown", "unspecified", "Austin, TX", "Engineer", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferWorkMode(tt.hint, tt.loc, tt.title, tt.desc); got != tt.want {
				t.Errorf("InferWorkMode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectSponsorship(t *testing.T) {
	if got := DetectSponsorship("Visa sponsorship available for the right candidate"); got != SponsorshipAvailable {
		t.Errorf("positive = %q", got)
	}
	if got := DetectSponsorship("We can sponsor... just kidding, no sponsorship"); got != SponsorshipNotAvailable {
		t.Errorf("negative should win, got %q", got)
	}
	if got := DetectSponsorship("Great benefits"); got != "" {
		t.Errorf("none = %q", got)
	}
}

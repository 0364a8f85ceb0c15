package scope

import (
	"errors"
	"net/url"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crawl-core/pkg/config"
	"crawl-core/pkg/utils"
)

func defaultFilter(t *testing.T) *Filter {
	t.Helper()
	f, err := New(config.Default())
	require.NoError(t, err)
	return f
}

func TestFilter_Allowed_Domains(t *testing.T) {
	f := defaultFilter(t)

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"ExactDomain", "http://ics.uci.edu/", true},
		{"Subdomain", "http://www.ics.uci.edu/about", true},
		{"DeepSubdomain", "https://vision.ics.uci.edu/papers", true},
		{"OtherAllowed", "https://www.stat.uci.edu/", true},
		{"Informatics", "http://www.informatics.uci.edu/x", true},
		{"HTTPS", "https://sub.cs.uci.edu/", true},
		{"DomainInPath", "http://evil.com/ics.uci.edu", false},
		{"SuffixWithoutDot", "http://evil-ics.uci.edu/", false},
		{"AllowedAsPrefix", "http://ics.uci.edu.attacker.com/", false},
		{"PrefixAndSuffixTrick", "http://evil-ics.uci.edu.attacker.com/", false},
		{"ParentDomain", "http://uci.edu/", false},
		{"SiblingDomain", "http://www.eecs.uci.edu/", false},
		{"FTPScheme", "ftp://ics.uci.edu/file", false},
		{"Mailto", "mailto:someone@ics.uci.edu", false},
		{"NoHost", "http:///path", false},
		{"Unparseable", "http://[::1/", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Allowed(tt.url), "Allowed(%q)", tt.url)
		})
	}
}

func TestFilter_Allowed_Extensions(t *testing.T) {
	f := defaultFilter(t)

	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"PDF", "http://www.ics.uci.edu/paper.pdf", false},
		{"PDFUpper", "http://www.ics.uci.edu/PAPER.PDF", false},
		{"PDFWithQuery", "http://www.ics.uci.edu/paper.pdf?download=1", false},
		{"Zip", "http://www.ics.uci.edu/files/data.ZIP", false},
		{"Jpg", "http://www.ics.uci.edu/img/photo.jpg", false},
		{"HTML", "http://www.ics.uci.edu/page.html", true},
		{"PHP", "http://www.ics.uci.edu/index.php?id=3", true},
		{"NoExtension", "http://www.ics.uci.edu/about", true},
		{"DotInDirectoryOnly", "http://www.ics.uci.edu/v1.pdf/page", true},
		{"ExtensionInQueryOnly", "http://www.ics.uci.edu/view?file=a.pdf", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Allowed(tt.url), "Allowed(%q)", tt.url)
		})
	}
}

func TestFilter_Check_ErrorKinds(t *testing.T) {
	f := defaultFilter(t)

	tests := []struct {
		url     string
		wantErr error
	}{
		{"ftp://ics.uci.edu/", utils.ErrUnsupportedScheme},
		{"http://example.com/", utils.ErrScopeViolation},
		{"http://www.ics.uci.edu/a.pdf", utils.ErrExcludedExtension},
	}

	for _, tt := range tests {
		u, err := url.Parse(tt.url)
		require.NoError(t, err)
		checkErr := f.Check(u)
		assert.True(t, errors.Is(checkErr, tt.wantErr), "Check(%q) = %v, want %v", tt.url, checkErr, tt.wantErr)
	}
}

func TestFilter_DisallowedPatterns(t *testing.T) {
	f := NewFilter([]string{"ics.uci.edu"}, nil, []*regexp.Regexp{regexp.MustCompile(`^/calendar/`)})

	assert.False(t, f.Allowed("http://www.ics.uci.edu/calendar/2020/01"))
	assert.True(t, f.Allowed("http://www.ics.uci.edu/events/calendar/"))
}

func TestNew_InvalidPattern(t *testing.T) {
	cfg := config.Default()
	cfg.DisallowedPathPatterns = []string{"[unclosed"}

	_, err := New(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrConfigValidation)
}

func TestNewFilter_NormalizesRules(t *testing.T) {
	f := NewFilter([]string{" .ICS.UCI.EDU. ", ""}, []string{".PDF", " "}, nil)

	assert.Equal(t, []string{"ics.uci.edu"}, f.domains)
	assert.Len(t, f.extensions, 1)
	assert.True(t, f.Allowed("http://www.ics.uci.edu/"))
	assert.False(t, f.Allowed("http://www.ics.uci.edu/x.pdf"))
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "pdf", Extension("/a/b.PDF"))
	assert.Equal(t, "gz", Extension("/a/b.tar.gz"))
	assert.Equal(t, "", Extension("/a/b"))
	assert.Equal(t, "", Extension("/a.d/b"))
	assert.Equal(t, "", Extension("/"))
}

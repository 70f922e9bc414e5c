package main

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgurstats/pkg/report"
	"imgurstats/pkg/stats"
	"imgurstats/pkg/ui"
)

func TestMain(m *testing.M) {
	ui.SetColor(false)
	m.Run()
}

func TestResolveScope(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		account stats.Account
		want    string
		wantErr bool
	}{
		{name: "defaults to account", account: stats.Account{Name: "alice"}, want: "alice"},
		{name: "argument wins", args: []string{"@bob/"}, account: stats.Account{Name: "alice"}, want: "bob"},
		{name: "nothing to default to", wantErr: true},
		{name: "invalid name", args: []string{"bob.smith"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveScope(tt.args, tt.account)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAskYesNo(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"Yes\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		got := askYesNo(bufio.NewReader(strings.NewReader(tt.input)), &out, "Continue?")
		assert.Equal(t, tt.want, got, "input %q", tt.input)
		assert.Equal(t, "Continue? (y/N): ", out.String())
	}
}

func TestMaskCookie(t *testing.T) {
	assert.Equal(t, "", maskCookie(""))
	assert.Equal(t, "***", maskCookie("a=b"))
	assert.Equal(t, "IMGU...c123", maskCookie("IMGURSESSION=abc123"))
}

func TestRenderTop(t *testing.T) {
	top := &report.TopReport{
		Scope: "alice",
		Rows: []report.RankedRow{
			{Rank: 1, ID: "aaa", Views: 12000, Ext: "jpg", Movement: report.MovementUp, PriorRank: 3},
			{Rank: 2, ID: "bbb", Views: 900, Ext: "mp4", Movement: report.MovementNew},
			{Rank: 3, ID: "ccc", Views: 850, Ext: "png", Movement: report.MovementDown, PriorRank: 1},
		},
		TotalViews: "13,750",
		Images:     3,
		Updated:    "1/2/2026, 3:04:05 PM",
	}

	var out bytes.Buffer
	renderTop(&out, top)
	s := out.String()

	assert.Contains(t, strings.ToLower(s), "top images of alice")
	assert.Contains(t, s, "https://i.imgur.com/aaa.jpg")
	assert.Contains(t, s, "https://i.imgur.com/bbb.gifv")
	assert.Contains(t, s, "12,000")
	assert.Contains(t, s, "▲ 2")
	assert.Contains(t, s, "▼ 2")
	assert.Contains(t, s, "new")
	assert.Contains(t, s, "3 images, 13,750 views in total")
	assert.Contains(t, s, "Updated 1/2/2026, 3:04:05 PM\n")
	assert.NotContains(t, s, "compared with")
}

func TestRenderSummary(t *testing.T) {
	summary := report.Summary{
		report.KeyDate:       "1/9/2026, 3:00:00 PM",
		report.KeyTotalCount: "12",
		"views":              "5,400",
		"points":             "80",
	}
	prior := report.Summary{
		report.KeyDate:       "1/2/2026, 3:00:00 PM",
		report.KeyTotalCount: "10",
		"views":              "5,000",
		"points":             "95",
	}

	var out bytes.Buffer
	renderSummary(&out, "alice", summary, prior)
	s := out.String()

	assert.Contains(t, strings.ToLower(s), "posts of alice")
	assert.Contains(t, s, "Total Posts")
	assert.Contains(t, s, "+2")
	assert.Contains(t, s, "+400")
	assert.Contains(t, s, "-15")
	assert.Contains(t, s, "later")
	assert.NotContains(t, s, "Comments")
}

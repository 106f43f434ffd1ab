package capture

import (
	"net/url"
	"testing"
)

func TestParseRequestInfo_FullVariables_ExtractsAll(t *testing.T) {
	variables := `{"count":40,"cursor":"DAABCgABGc","userId":"12345","query":"golang lang:ja"}`
	rawURL := "https://x.com/i/api/graphql/abc/SearchTimeline?variables=" + url.QueryEscape(variables)

	info := ParseRequestInfo(rawURL)

	if info.Count != 40 {
		t.Errorf("Count = %d, want 40", info.Count)
	}
	if info.Cursor == nil || *info.Cursor != "DAABCgABGc" {
		t.Errorf("Cursor = %v, want DAABCgABGc", info.Cursor)
	}
	if info.UserID == nil || *info.UserID != "12345" {
		t.Errorf("UserID = %v, want 12345", info.UserID)
	}
	if info.Query == nil || *info.Query != "golang lang:ja" {
		t.Errorf("Query = %v, want %q", info.Query, "golang lang:ja")
	}
}

func TestParseRequestInfo_NoVariables_ReturnsDefaults(t *testing.T) {
	info := ParseRequestInfo("https://x.com/i/api/graphql/abc/Bookmarks")

	if info.Count != 20 {
		t.Errorf("Count = %d, want 20 (default)", info.Count)
	}
	if info.Cursor != nil || info.UserID != nil || info.Query != nil {
		t.Errorf("optional fields should be nil: %+v", info)
	}
}

func TestParseRequestInfo_MalformedVariables_ReturnsDefaults(t *testing.T) {
	rawURL := "https://x.com/i/api/graphql/abc/Bookmarks?variables=" + url.QueryEscape("{not json")

	info := ParseRequestInfo(rawURL)

	if info.Count != 20 {
		t.Errorf("Count = %d, want 20 (default)", info.Count)
	}
	if info.Cursor != nil {
		t.Errorf("Cursor = %v, want nil", info.Cursor)
	}
}

func TestParseRequestInfo_ZeroCount_KeepsDefault(t *testing.T) {
	rawURL := "https://x.com/i/api/graphql/abc/Bookmarks?variables=" + url.QueryEscape(`{"count":0}`)

	info := ParseRequestInfo(rawURL)

	if info.Count != 20 {
		t.Errorf("Count = %d, want 20 (default)", info.Count)
	}
}

func TestParseRequestInfo_PartialVariables_ExtractsPresent(t *testing.T) {
	rawURL := "https://x.com/i/api/graphql/abc/UserTweets?variables=" + url.QueryEscape(`{"userId":"999","count":100}`)

	info := ParseRequestInfo(rawURL)

	if info.Count != 100 {
		t.Errorf("Count = %d, want 100", info.Count)
	}
	if info.UserID == nil || *info.UserID != "999" {
		t.Errorf("UserID = %v, want 999", info.UserID)
	}
	if info.Query != nil {
		t.Errorf("Query = %v, want nil", info.Query)
	}
	if info.Cursor != nil {
		t.Errorf("Cursor = %v, want nil", info.Cursor)
	}
}

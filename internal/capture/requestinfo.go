package capture

import (
	"encoding/json"
	"net/url"

	"github.com/hitoshi/tweetman/internal/model"
)

// graphqlVariables はGraphQLリクエストURLのvariablesクエリパラメータの
// うち、出所記録に必要なフィールドのみを表す。
type graphqlVariables struct {
	Count  int    `json:"count"`
	Cursor string `json:"cursor"`
	UserID string `json:"userId"`
	Query  string `json:"query"`
}

// ParseRequestInfo はインターセプトしたリクエストURLから文脈情報を取り出す。
// variablesパラメータの解析に失敗した場合は空のRequestInfoを返す。
// 抽出処理自体はRequestInfoなしでも続行できるため、エラーは返さない。
func ParseRequestInfo(rawURL string) model.RequestInfo {
	info := model.RequestInfo{Count: 20}

	u, err := url.Parse(rawURL)
	if err != nil {
		return info
	}

	raw := u.Query().Get("variables")
	if raw == "" {
		return info
	}

	var vars graphqlVariables
	if err := json.Unmarshal([]byte(raw), &vars); err != nil {
		return info
	}

	if vars.Count > 0 {
		info.Count = vars.Count
	}
	if vars.Cursor != "" {
		info.Cursor = &vars.Cursor
	}
	if vars.UserID != "" {
		info.UserID = &vars.UserID
	}
	if vars.Query != "" {
		info.Query = &vars.Query
	}

	return info
}

// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerService は外部APIから取り込んだツイート本文を整形する。
// GraphQL応答のfull_textにはHTMLエンティティ（&amp; &lt; &gt;等）や、
// note_tweet経由で紛れ込むマークアップ片が含まれるため、
// bluemondayのStrictPolicyで全タグを除去した上でエンティティを復号し、
// プレーンテキストとして保存する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はツイート本文のサニタイズ機能のインターフェースを定義する。
// 抽出パイプラインの本文確定時に使用される。
type TextSanitizerService interface {
	// Sanitize は入力からHTMLタグを全て除去し、エンティティを復号した
	// プレーンテキストを返す。前後の空白は取り除かれる。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは許可タグを一切持たないため、scriptやimgはもちろん
// pやaも含めて全てのマークアップが除去される。
func NewTextSanitizer() TextSanitizerService {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力をプレーンテキストへ変換する。
// StrictPolicyはテキスト中の & や < を再エスケープして返すため、
// 除去後にUnescapeStringで元の文字へ戻す。
func (s *textSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	stripped := s.policy.Sanitize(raw)
	return strings.TrimSpace(html.UnescapeString(stripped))
}

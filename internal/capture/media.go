package capture

import (
	"sort"

	"github.com/hitoshi/tweetman/internal/model"
)

// maxMediaPerTweet はレコードあたりのメディア保持上限。
// プラットフォームUIの添付上限に合わせ、超過分はエラーにせず切り捨てる。
const maxMediaPerTweet = 4

// playableContentType は保存用再生URLとして採用するエンコード形式。
const playableContentType = "video/mp4"

type mediaEntities struct {
	Media []mediaItem `json:"media"`
}

type mediaItem struct {
	IDStr         string        `json:"id_str"`
	Type          string        `json:"type"`
	MediaURLHTTPS string        `json:"media_url_https"`
	MediaURL      string        `json:"media_url"`
	OriginalInfo  *originalInfo `json:"original_info"`
	Sizes         *mediaSizes   `json:"sizes"`
	VideoInfo     *videoInfo    `json:"video_info"`
}

type originalInfo struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type mediaSizes struct {
	Large *mediaSize `json:"large"`
}

type mediaSize struct {
	W int `json:"w"`
	H int `json:"h"`
}

type videoInfo struct {
	DurationMillis int64          `json:"duration_millis"`
	Variants       []videoVariant `json:"variants"`
}

type videoVariant struct {
	Bitrate     int    `json:"bitrate"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
}

// hasMedia はツイートにメディアが添付されているかを返す。
func hasMedia(legacy *tweetLegacy) bool {
	if legacy == nil {
		return false
	}
	if legacy.ExtendedEntities != nil && len(legacy.ExtendedEntities.Media) > 0 {
		return true
	}
	return legacy.Entities != nil && len(legacy.Entities.Media) > 0
}

// extractMediaInfo はメディア情報を抽出する。
// extended_entities.mediaを優先し、なければentities.mediaを使う。
// 上限を超えるメディアは元の順序を保ったまま先頭4件のみ残す。
func extractMediaInfo(legacy *tweetLegacy) []model.MediaInfo {
	if legacy == nil {
		return nil
	}

	var media []mediaItem
	if legacy.ExtendedEntities != nil && len(legacy.ExtendedEntities.Media) > 0 {
		media = legacy.ExtendedEntities.Media
	} else if legacy.Entities != nil {
		media = legacy.Entities.Media
	}

	if len(media) == 0 {
		return nil
	}
	if len(media) > maxMediaPerTweet {
		media = media[:maxMediaPerTweet]
	}

	result := make([]model.MediaInfo, 0, len(media))
	for _, item := range media {
		url := item.MediaURLHTTPS
		if url == "" {
			url = item.MediaURL
		}

		info := model.MediaInfo{
			ID:         item.IDStr,
			Type:       item.Type,
			PreviewURL: url,
			MediaURL:   url,
		}

		if item.OriginalInfo != nil && item.OriginalInfo.Width > 0 {
			info.Width = item.OriginalInfo.Width
			info.Height = item.OriginalInfo.Height
		} else if item.Sizes != nil && item.Sizes.Large != nil {
			info.Width = item.Sizes.Large.W
			info.Height = item.Sizes.Large.H
		}

		if item.Type == "video" || item.Type == "animated_gif" {
			applyVideoInfo(&info, item.VideoInfo)
		}

		result = append(result, info)
	}

	return result
}

// applyVideoInfo は動画・GIFの再生時間とバリアントを反映する。
// 再生URLには全バリアントをビットレート昇順に並べた中でvideo/mp4のみを残し、
// その中央のバリアントを採用する（帯域と画質の折衷）。mp4が1件しか残らない
// 場合はビットレートに関わらずそれを使う。
func applyVideoInfo(info *model.MediaInfo, vi *videoInfo) {
	if vi == nil {
		return
	}

	if vi.DurationMillis > 0 {
		info.DurationMs = vi.DurationMillis
	}

	if len(vi.Variants) == 0 {
		return
	}

	variants := make([]model.MediaVariant, 0, len(vi.Variants))
	for _, v := range vi.Variants {
		variants = append(variants, model.MediaVariant{
			Bitrate:     v.Bitrate,
			URL:         v.URL,
			ContentType: v.ContentType,
		})
	}
	info.Variants = variants

	var mp4s []model.MediaVariant
	for _, v := range variants {
		if v.ContentType == playableContentType {
			mp4s = append(mp4s, v)
		}
	}
	if len(mp4s) == 0 {
		return
	}

	sort.SliceStable(mp4s, func(i, j int) bool {
		return mp4s[i].Bitrate < mp4s[j].Bitrate
	})

	chosen := mp4s[len(mp4s)/2]
	info.MediaURL = chosen.URL
}

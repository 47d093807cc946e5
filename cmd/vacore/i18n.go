// Package main provides localization for the vacore CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Flag categories
		"Output":       "出力先",
		"Pattern":      "テストパターン",
		"Encoding":     "エンコード",
		"Verification": "検証",
		"Engine":       "エンジン",
		"Debug":        "デバッグ",
		"Logging":      "ログ",

		// Root command
		"Exercise the video acceleration engine": "動画アクセラレーションエンジンを操作",
		"vacore drives the software accelerator through the engine: it lists capabilities, encodes test patterns, probes and compares MP4 files.": "vacoreはエンジン経由でソフトウェアアクセラレータを操作し、機能一覧の表示、テストパターンのエンコード、MP4ファイルの解析と比較を行います。",

		// Commands
		"List the profiles, entrypoints and formats the engine exposes": "エンジンが提供するプロファイル、エントリポイント、フォーマットを一覧表示",
		"Render a test pattern and encode it as an H.264 MP4 file":      "テストパターンを描画してH.264のMP4ファイルにエンコード",
		"Show the codec, size and profile of MP4 files":                 "MP4ファイルのコーデック、サイズ、プロファイルを表示",
		"Create a side-by-side comparison video":                        "2つの動画を並べた比較動画を作成",
		"Show version information":                                      "バージョン情報を表示",
		"vacore version %s":                                             "vacore バージョン %s",

		// Common flags
		"Configuration file (YAML or TOML)":              "設定ファイル（YAMLまたはTOML）",
		"Log level (debug, info, warn, error)":           "ログレベル（debug, info, warn, error）",
		"Suppress all log output":                        "全てのログ出力を抑制",
		"Engine dispatcher workers (default: CPU count)": "エンジンのディスパッチャワーカー数（デフォルト: CPU数）",
		"Frames allowed in flight across all contexts":   "全コンテキスト合計の同時実行フレーム数",
		"Hide a Profile:Entrypoint pair (repeatable)":    "Profile:Entrypoint の組を非表示にする（複数指定可）",

		// Info flags and output
		"Also print config attributes and image formats": "コンフィグ属性と画像フォーマットも表示",
		"API version":                       "APIバージョン",
		"Supported profile and entrypoints": "対応プロファイルとエントリポイント",
		"Image formats":                     "画像フォーマット",

		// Encode flags
		"Output MP4 file path":                               "出力MP4ファイルパス",
		"Output execution summary to file (Markdown format)": "実行サマリーをファイルに出力（Markdown形式）",
		"Clip preset (%s)":                                   "クリッププリセット（%s）",
		"Picture width":                                      "画像の幅",
		"Picture height":                                     "画像の高さ",
		"Number of frames":                                   "フレーム数",
		"Frame rate":                                         "フレームレート",
		"Caption prefix":                                     "キャプションの接頭辞",
		"Background color (hex, e.g., #1e1e1e)":              "背景色（16進数、例: #1e1e1e）",
		"TrueType font for the caption":                      "キャプション用のTrueTypeフォント",
		"H.264 profile (baseline, main, high or a VAProfile name)": "H.264プロファイル（baseline, main, high またはVAProfile名）",
		"level_idc (0 = automatic)":                                "level_idc（0 = 自動）",
		"Surfaces kept in flight by the encoder":                   "エンコーダが同時に使用するサーフェス数",
		"Duration to hold final frame in milliseconds":             "最終フレームの保持時間（ミリ秒）",
		"Fall back to a simpler profile when the requested one is unavailable": "要求したプロファイルが使えない場合に下位プロファイルで代替",
		"Skip decoding and comparing the output":                               "出力のデコードと比較を省略",
		"Lowest acceptable PSNR in dB":                                         "許容する最小PSNR（dB）",
		"Enable debug output":                                                  "デバッグ出力を有効化",
		"Directory for debug output":                                           "デバッグ出力のディレクトリ",

		// Probe output
		"At least one file argument is required": "ファイル引数が1つ以上必要です",
		"samples":                                "サンプル",
		"sync":                                   "同期",
		"fragmented":                             "フラグメント化",
		"decodable as":                           "デコード可能:",
		"decoded frames":                         "デコードフレーム数",
		"damaged frames":                         "破損フレーム数",
		"Also decode every frame through the engine and count damaged frames": "エンジンで全フレームをデコードし破損フレームを数える",

		// Juxtapose
		"Gap between videos in pixels":            "動画間の隙間（ピクセル）",
		"Two video arguments are required":        "2つの動画引数が必要です",
		"Creating comparison video: %s + %s → %s": "比較動画を作成中: %s + %s → %s",
		"Frames: %d, Duration: %dms":              "フレーム数: %d, 再生時間: %dms",
		"Mean PSNR between inputs: %.2f dB":       "入力間の平均PSNR: %.2f dB",

		// Summary content
		"Encode Summary":   "エンコードサマリー",
		"Generated":        "生成日時",
		"Video":            "動画",
		"Size":             "サイズ",
		"Frames":           "フレーム数",
		"Encoded Frames":   "エンコードフレーム数",
		"Duration":         "再生時間",
		"File Size":        "ファイルサイズ",
		"Settings":         "設定",
		"Backend":          "バックエンド",
		"Profile":          "プロファイル",
		"Surfaces":         "サーフェス数",
		"Workers":          "ワーカー数",
		"Frame Rate":       "フレームレート",
		"Frames In Flight": "同時実行フレーム数",
		"Result":           "結果",
		"Passed":           "合格",
		"Failed":           "不合格",
		"Compared Frames":  "比較フレーム数",
		"Damaged Frames":   "破損フレーム数",
		"Mean PSNR":        "平均PSNR",
		"Min PSNR":         "最小PSNR",
		"Max Error":        "最大誤差",
	})
}

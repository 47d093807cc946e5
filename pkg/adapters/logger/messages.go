package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Pipeline (info)
		"Starting pipeline":                                  "パイプラインを開始します",
		"Pipeline completed successfully":                    "パイプラインが正常に完了しました",
		"Rendering %d frames of %dx%d":                       "%[2]dx%[3]d のフレームを %[1]d 枚描画中",
		"Encoding video with profile %s":                     "プロファイル %s で動画をエンコード中",
		"Video encoded: %d bytes":                            "動画をエンコードしました: %d バイト",
		"Verifying decoded frames":                           "デコードしたフレームを検証中",
		"Failed to render pattern: %s":                       "パターンの描画に失敗しました: %s",
		"Failed to encode video: %s":                         "動画のエンコードに失敗しました: %s",
		"Failed to write output: %s":                         "出力の書き込みに失敗しました: %s",
		"Failed to verify video: %s":                         "動画の検証に失敗しました: %s",
		"Decoded frames do not match the source":             "デコードしたフレームが元画像と一致しません",
		"Verification: %d frames, mean %.2f dB, min %.2f dB": "検証: %d フレーム, 平均 %.2f dB, 最小 %.2f dB",

		// Pattern stage
		"Rendering %d frames with %d workers": "%d フレームを %d ワーカーで描画中",
		"Rendering completed":                 "描画が完了しました",
		"Failed to save frame %d: %v":         "フレーム %d の保存に失敗しました: %v",

		// Encode and verify stages
		"Encoded %d frames into %d bytes":               "%d フレームを %d バイトにエンコードしました",
		"Compared %d frames: mean %.2f dB, min %.2f dB": "%d フレームを比較: 平均 %.2f dB, 最小 %.2f dB",
		"Frame %d decoded with %d damaged regions":      "フレーム %d のデコードで %d 箇所の破損を検出しました",

		// Codec adapters
		"Encoder ready: %dx%d at %.1f fps, %d surfaces":      "エンコーダ準備完了: %dx%d, %.1f fps, サーフェス %d 枚",
		"Decoded %d frames of %dx%d":                         "%[2]dx%[3]d のフレームを %[1]d 枚デコードしました",
		"Encoded %dx%d picture into %d segments":             "%dx%d のピクチャを %d セグメントにエンコードしました",
		"H.264 profile %s not available, falling back to %s": "H.264プロファイル %s は利用できません。%s で代替します",
		"Dropping slice: %v":                                 "スライスを破棄します: %v",
		"Decoding %s stream with %s":                         "%s ストリームを %s でデコード中",
		"Could not close picture on context %#x: %v":         "コンテキスト %#x のピクチャを閉じられませんでした: %v",
		"Abandoned picture on surface %#x: %v":               "サーフェス %#x のピクチャを破棄しました: %v",
		"Discarded picture on surface %#x: %v":               "サーフェス %#x の未完了ピクチャを破棄しました: %v",
		"Could not destroy %s %#x: %v":                       "%s %#x を破棄できませんでした: %v",

		// Juxtapose
		"Combining %dx%d and %dx%d into %dx%d, %d ms": "%dx%d と %dx%d を %dx%d に結合中 (%d ms)",

		// Engine
		"Session initialized: %d profiles, %d workers, %d frames in flight": "セッション初期化: プロファイル %d 件, ワーカー %d, 同時実行フレーム %d",
		"Terminating session, waiting for in-flight frames":                 "セッションを終了中。実行中のフレームを待機しています",
		"Session terminated, %d objects destroyed":                          "セッションを終了しました。%d 個のオブジェクトを破棄しました",
		"Config %#x created: %s/%s":                                         "コンフィグ %#x を作成しました: %s/%s",
		"Context %#x created: %s/%s %dx%d":                                  "コンテキスト %#x を作成しました: %s/%s %dx%d",
		"%d surfaces created: %s %dx%d":                                     "サーフェスを %d 枚作成しました: %s %dx%d",
		"Frame %d on context %#x completed: %s":                             "フレーム %d (コンテキスト %#x) が完了しました: %s",
		"Multi-frame context %#x submitted %d frames":                       "マルチフレームコンテキスト %#x で %d フレームを投入しました",
		"Surface %#x exported as native handle %d":                          "サーフェス %#x をネイティブハンドル %d としてエクスポートしました",

		// CLI
		"Interrupted, shutting down...": "中断されました。シャットダウン中...",
		"Output saved to %s":            "出力を %s に保存しました",
		"Summary saved to %s":           "サマリーを %s に保存しました",
		"Failed to write summary: %s":   "サマリーの書き込みに失敗しました: %s",
	})
}

// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package segment

import "regexp"

var (
	scriptStyleRe = regexp.MustCompile(`(?is)<(script|style|noscript)\b[^>]*>.*?</(script|style|noscript)>`)
	commentRe     = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockTextRe   = regexp.MustCompile(`(?is)<(p|h[1-6]|li|blockquote|figcaption)\b[^>]*>(.*?)</(?:p|h[1-6]|li|blockquote|figcaption)>`)
	tagRe         = regexp.MustCompile(`(?s)<[^>]*>`)
)

// extractFallback 解析器失败时的降级路径：正则剥离标签后提取块级文本。
// 不生成定位串，不提取属性。
func extractFallback(source string) []Segment {
	cleaned := commentRe.ReplaceAllString(scriptStyleRe.ReplaceAllString(source, ""), "")
	matches := blockTextRe.FindAllStringSubmatch(cleaned, -1)
	seen := make(map[string]bool)
	var segments []Segment
	for _, m := range matches {
		text := Normalize(tagRe.ReplaceAllString(m[2], " "))
		if len([]rune(text)) < minSegmentRunes {
			continue
		}
		h := Hash(text)
		if seen[h] {
			continue
		}
		seen[h] = true
		segments = append(segments, Segment{Hash: h, Text: text})
	}
	return segments
}

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

package log

import "regexp"

// 凭证类模式：key=value / Bearer token / DSN 内嵌密码。日志写出前统一替换
var credentialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)((?:api[_-]?key|secret|token|password|authorization|auth[_-]?key)\s*[=:]\s*)\S+`),
	regexp.MustCompile(`(?i)(bearer\s+)\S+`),
	regexp.MustCompile(`(://[^/:@\s]+:)[^@\s]+(@)`),
	regexp.MustCompile(`(?i)(x-worker-secret\s*[=:]\s*)\S+`),
}

// Redact 替换字符串中凭证类片段为 ***；无匹配时原样返回
func Redact(s string) string {
	for _, p := range credentialPatterns {
		s = p.ReplaceAllString(s, "${1}***${2}")
	}
	return s
}

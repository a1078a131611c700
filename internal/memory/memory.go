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

// Package memory 翻译记忆：按 (site, segment_hash, target_lang) 内容寻址的译文缓存
package memory

import "context"

// Key 翻译记忆的查询键
type Key struct {
	Hash string
	Lang string
}

// Entry 一条写入翻译记忆的译文
type Entry struct {
	Hash       string
	Lang       string
	SourceLang string
	Text       string
}

// Store 翻译记忆存储。Probe 单次往返批量探测，Upsert 幂等写入，
// 同键并发写入后写覆盖。
type Store interface {
	Probe(ctx context.Context, siteID string, keys []Key) (map[Key]string, error)
	Upsert(ctx context.Context, siteID string, entries []Entry) error
}

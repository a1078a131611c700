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

// Package segment HTML 切分与内容寻址：把页面拆成可翻译的文本段
package segment

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Segment 一个可翻译的文本段。Text 已规范化，Hash 为其内容地址。
// Attr 非空时该段来自元素属性而不是元素文本。
type Segment struct {
	Hash    string
	Text    string
	Locator string
	Attr    string
}

// 产生整段文本的块级元素
var blockTags = map[string]bool{
	"p": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true,
	"li": true, "blockquote": true, "figcaption": true,
}

// 面向用户的可翻译属性
var translatableAttrs = []string{"alt", "title", "placeholder", "aria-label", "aria-description"}

var skipTags = map[string]bool{
	"script": true, "style": true, "noscript": true,
}

const minSegmentRunes = 3

// Extract 解析 HTML 并按文档顺序返回文本段。
// 同一 hash 只保留首次出现；解析失败退化为正则提取。
// 纯函数，不做任何 IO。
func Extract(source string) []Segment {
	if strings.TrimSpace(source) == "" {
		return nil
	}
	doc, err := html.Parse(strings.NewReader(source))
	if err != nil {
		return extractFallback(source)
	}
	c := &collector{seen: make(map[string]bool)}
	c.walk(doc, nil)
	return c.segments
}

type collector struct {
	segments []Segment
	seen     map[string]bool
}

func (c *collector) add(text, locator, attr string) {
	norm := Normalize(text)
	if len([]rune(norm)) < minSegmentRunes {
		return
	}
	h := Hash(norm)
	if c.seen[h] {
		return
	}
	c.seen[h] = true
	c.segments = append(c.segments, Segment{Hash: h, Text: norm, Locator: locator, Attr: attr})
}

// walk 按文档顺序深度优先；path 为到当前节点的祖先元素链
func (c *collector) walk(n *html.Node, path []*html.Node) {
	if n.Type == html.CommentNode {
		return
	}
	if n.Type == html.ElementNode {
		if skipTags[n.Data] {
			return
		}
		loc := locatorFor(append(path, n))
		for _, name := range translatableAttrs {
			if v, ok := attrValue(n, name); ok {
				c.add(v, loc, name)
			}
		}
		if blockTags[n.Data] {
			if text := inlineText(n); text != "" {
				c.add(text, loc, "")
			}
		}
		path = append(path, n)
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.walk(child, path)
	}
}

// inlineText 递归收集块级元素的全部文本；嵌套块级元素的文本
// 同时也归其自身的段，重复内容由 hash 去重兜底
func inlineText(n *html.Node) string {
	var b strings.Builder
	var visit func(node *html.Node)
	visit = func(node *html.Node) {
		switch node.Type {
		case html.TextNode:
			b.WriteString(node.Data)
		case html.ElementNode:
			if skipTags[node.Data] {
				return
			}
		case html.CommentNode:
			return
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			visit(child)
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		visit(child)
	}
	return b.String()
}

func attrValue(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// locatorFor 尽力生成 CSS 风格定位串，如 body > ul > li:nth-of-type(2)。
// 仅用于回传给调用方做页面回写，管线本身不依赖它。
func locatorFor(chain []*html.Node) string {
	parts := make([]string, 0, len(chain))
	for _, n := range chain {
		if n.Data == "html" || n.Data == "head" {
			continue
		}
		part := n.Data
		if idx := nthOfType(n); idx > 1 {
			part = part + ":nth-of-type(" + strconv.Itoa(idx) + ")"
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " > ")
}

func nthOfType(n *html.Node) int {
	idx := 1
	for sib := n.PrevSibling; sib != nil; sib = sib.PrevSibling {
		if sib.Type == html.ElementNode && sib.Data == n.Data {
			idx++
		}
	}
	return idx
}

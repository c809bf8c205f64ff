package console

import (
	"fmt"
	"strings"
)

// escapeScriptLiteral makes s safe inside a single-quoted script literal.
// Backslashes are doubled before quotes are escaped so the two passes never
// interact, and line breaks become escapes so the literal stays on one line.
// This is a quoting safeguard for generated snippets, not a sandbox.
func escapeScriptLiteral(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		"\n", `\n`,
		"\r", `\r`,
		"\t", `\t`,
	)
	return r.Replace(s)
}

// domSetScript assigns textContent on every selector match and reports the
// match count.
func domSetScript(selector, text string) string {
	return fmt.Sprintf(`(function () {
	var els = document.querySelectorAll('%s');
	els.forEach(function (el) { el.textContent = '%s'; });
	return els.length;
})()`, escapeScriptLiteral(selector), escapeScriptLiteral(text))
}

// domHTMLScript assigns innerHTML on every selector match.
func domHTMLScript(selector, markup string) string {
	return fmt.Sprintf(`(function () {
	var els = document.querySelectorAll('%s');
	els.forEach(function (el) { el.innerHTML = '%s'; });
	return els.length;
})()`, escapeScriptLiteral(selector), escapeScriptLiteral(markup))
}

// domAttrScript sets one attribute on every selector match.
func domAttrScript(selector, name, value string) string {
	return fmt.Sprintf(`(function () {
	var els = document.querySelectorAll('%s');
	els.forEach(function (el) { el.setAttribute('%s', '%s'); });
	return els.length;
})()`, escapeScriptLiteral(selector), escapeScriptLiteral(name), escapeScriptLiteral(value))
}

// domReplaceScript walks the text nodes under document.body replacing every
// occurrence of the literal substring old with new, and reports how many
// occurrences were replaced.
func domReplaceScript(oldText, newText string) string {
	return fmt.Sprintf(`(function () {
	var count = 0;
	function walk(node) {
		if (node.nodeType === 3) {
			var parts = node.nodeValue.split('%s');
			if (parts.length > 1) {
				count += parts.length - 1;
				node.nodeValue = parts.join('%s');
			}
			return;
		}
		var children = node.childNodes;
		for (var i = 0; i < children.length; i++) {
			walk(children[i]);
		}
	}
	if (document.body) {
		walk(document.body);
	}
	return count;
})()`, escapeScriptLiteral(oldText), escapeScriptLiteral(newText))
}

// pageTextScript extracts the page's visible text collapsed to single
// spaces, capped at maxChars.
func pageTextScript(maxChars int) string {
	return fmt.Sprintf(`(function () {
	var text = document.body ? document.body.textContent : '';
	text = text.replace(/\s+/g, ' ').trim();
	var total = text.length;
	var truncated = total > %d;
	if (truncated) {
		text = text.slice(0, %d);
	}
	return { text: text, total: total, truncated: truncated };
})()`, maxChars, maxChars)
}

// pageLinksScript lists anchors carrying an href, capped at maxLinks.
func pageLinksScript(maxLinks int) string {
	return fmt.Sprintf(`(function () {
	var out = [];
	var links = document.querySelectorAll('a');
	for (var i = 0; i < links.length && out.length < %d; i++) {
		var href = links[i].getAttribute('href');
		if (!href) {
			continue;
		}
		var text = (links[i].textContent || '').replace(/\s+/g, ' ').trim();
		out.push({ href: href, text: text });
	}
	return { links: out, total: links.length };
})()`, maxLinks)
}

// pageMetaScript collects the title plus every meta tag that carries a name
// or property attribute.
func pageMetaScript() string {
	return `(function () {
	var out = [];
	var metas = document.querySelectorAll('meta');
	for (var i = 0; i < metas.length; i++) {
		var key = metas[i].getAttribute('name') || metas[i].getAttribute('property');
		if (!key) {
			continue;
		}
		out.push({ key: key, content: metas[i].getAttribute('content') || '' });
	}
	return { title: document.title || '', meta: out };
})()`
}

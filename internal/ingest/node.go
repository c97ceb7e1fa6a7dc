package ingest

import (
	"regexp"
	"strconv"
	"strings"
)

// The XAF ingester operates over the generic tree the XML decoder produces:
// map[string]interface{} nodes, []interface{} repeated elements, string (or
// numeric) leaves. Everything in this file is independent of how that tree
// was built, so the same lookup and classification logic works for any
// deserialized document.

var indexedSegmentRe = regexp.MustCompile(`^(.+)\[(\d+)\]$`)

// getChild resolves one path segment against a node. It tries the exact key,
// the @_-prefixed attribute variant, and finally a case-insensitive scan that
// also ignores namespace prefixes, since exporters disagree on casing and
// some leave namespaces on element names.
func getChild(node map[string]interface{}, name string) (interface{}, bool) {
	if v, ok := node[name]; ok {
		return v, true
	}
	if v, ok := node["@_"+name]; ok {
		return v, true
	}
	for k, v := range node {
		if strings.EqualFold(localKey(k), name) {
			return v, true
		}
	}
	return nil, false
}

// localKey strips the @_ attribute prefix and any namespace prefix from a
// node key: "@_ns2:TransactionDate" → "TransactionDate".
func localKey(k string) string {
	k = strings.TrimPrefix(k, "@_")
	if i := strings.LastIndex(k, ":"); i >= 0 {
		k = k[i+1:]
	}
	return k
}

// lookupFirst walks an ordered synonym list of dotted paths (with optional
// [i] index segments) and returns the first path that resolves to a
// non-empty value. Both ingesters funnel every "which of these twelve names
// did this exporter pick" question through here.
func lookupFirst(node map[string]interface{}, synonyms []string) interface{} {
	for _, path := range synonyms {
		current := interface{}(node)
		ok := true
		for _, part := range strings.Split(path, ".") {
			n, isNode := current.(map[string]interface{})
			if !isNode {
				ok = false
				break
			}
			if m := indexedSegmentRe.FindStringSubmatch(part); m != nil {
				child, found := getChild(n, m[1])
				if !found {
					ok = false
					break
				}
				idx, _ := strconv.Atoi(m[2])
				list, isList := child.([]interface{})
				if !isList || idx >= len(list) {
					ok = false
					break
				}
				current = list[idx]
				continue
			}
			child, found := getChild(n, part)
			if !found {
				ok = false
				break
			}
			current = child
		}
		if ok && !isEmptyValue(current) {
			return current
		}
	}
	return nil
}

// lookupString is lookupFirst flattened to text.
func lookupString(node map[string]interface{}, synonyms []string) string {
	return valueString(lookupFirst(node, synonyms))
}

// valueString renders a leaf value as text. Element nodes that carry both
// attributes and text yield their #text content.
func valueString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case bool:
		return strconv.FormatBool(val)
	case map[string]interface{}:
		if text, ok := val["#text"]; ok {
			return valueString(text)
		}
		return ""
	default:
		return ""
	}
}

func isEmptyValue(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	default:
		return false
	}
}

// asNodeList normalizes the XML decoder's single-vs-repeated ambiguity: one
// child element decodes as a map, several as a slice. Scalars yield nothing.
func asNodeList(v interface{}) []map[string]interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return []map[string]interface{}{val}
	case []interface{}:
		nodes := make([]map[string]interface{}, 0, len(val))
		for _, item := range val {
			if n, ok := item.(map[string]interface{}); ok {
				nodes = append(nodes, n)
			}
		}
		return nodes
	default:
		return nil
	}
}

// nodeKind tags what a node structurally looks like during the recursive
// search: a journal groups transactions, a transaction-like node carries
// recognizable posting fields itself.
type nodeKind int

const (
	nodeUnclassified nodeKind = iota
	nodeJournal
	nodeTransactionLike
)

// transactionFieldNames are the local key names whose presence marks a node
// as transaction-like.
var transactionFieldNames = map[string]bool{
	"transactiondate": true,
	"date":            true,
	"description":     true,
	"amount":          true,
	"line":            true,
	"debitamount":     true,
	"creditamount":    true,
	"accountid":       true,
	"transactionid":   true,
}

// descendKeyHints bias the recursive search toward subtrees whose key names
// suggest bookkeeping content.
var descendKeyHints = []string{"transaction", "journal", "entry", "line", "movement", "record"}

func classifyNode(node map[string]interface{}) nodeKind {
	if _, ok := getChild(node, "journalID"); ok {
		return nodeJournal
	}
	if tx, ok := getChild(node, "transaction"); ok {
		switch tx.(type) {
		case map[string]interface{}, []interface{}:
			return nodeJournal
		}
	}
	for k, v := range node {
		if transactionFieldNames[strings.ToLower(localKey(k))] {
			return nodeTransactionLike
		}
		if k == "#text" && valueString(v) != "" {
			return nodeTransactionLike
		}
	}
	return nodeUnclassified
}

// hasTransactionLikeField reports whether a node carries at least one field
// whose name smells like a posting attribute. Looser than classifyNode: any
// key containing date/amount/description/account counts, which is what the
// last-resort harvesters filter on.
func hasTransactionLikeField(node map[string]interface{}) bool {
	for k := range node {
		lk := strings.ToLower(localKey(k))
		if transactionFieldNames[lk] {
			return true
		}
		if strings.Contains(lk, "date") || strings.Contains(lk, "amount") ||
			strings.Contains(lk, "description") || strings.Contains(lk, "account") {
			return true
		}
	}
	return false
}

// journalTransactions unwraps the transaction children of a journal node.
func journalTransactions(journal map[string]interface{}) []map[string]interface{} {
	if tx, ok := getChild(journal, "transaction"); ok {
		return asNodeList(tx)
	}
	return nil
}

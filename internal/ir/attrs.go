package ir

import (
	"fmt"
	"strconv"
	"strings"
)

func attrList(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func flagAttr(name string, on bool) string {
	if on {
		return name
	}
	return ""
}

func rndAttr(m FRndMode) string {
	if m == RndNearestEven {
		return ""
	}
	return m.String()
}

func kvAttr(key string, v uint64) string {
	return fmt.Sprintf("%s=%#x", key, v)
}

func splitKV(tok string) (string, string, bool) {
	k, v, ok := strings.Cut(tok, "=")
	return k, v, ok
}

func parseKV(tok, key string) (uint64, bool) {
	k, v, ok := splitKV(tok)
	if !ok || k != key {
		return 0, false
	}
	n, err := strconv.ParseUint(v, 0, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseKVSigned(tok, key string) (int64, bool) {
	k, v, ok := splitKV(tok)
	if !ok || k != key {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 0, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func setEnum[T ~uint8](dst *T, names []string, tok string) bool {
	v, ok := LookupName[T](names, tok)
	if ok {
		*dst = v
	}
	return ok
}

func setKVEnum[T ~uint8](dst *T, names []string, tok, key string) bool {
	k, v, ok := splitKV(tok)
	if !ok || k != key {
		return false
	}
	return setEnum(dst, names, v)
}

func setFlag(dst *bool, name, tok string) bool {
	if tok == name {
		*dst = true
		return true
	}
	return false
}

func setUint8(dst *uint8, tok, key string) bool {
	n, ok := parseKV(tok, key)
	if !ok || n > 0xff {
		return false
	}
	*dst = uint8(n)
	return true
}

func setUint16(dst *uint16, tok, key string) bool {
	n, ok := parseKV(tok, key)
	if !ok || n > 0xffff {
		return false
	}
	*dst = uint16(n)
	return true
}

func setUint32(dst *uint32, tok, key string) bool {
	n, ok := parseKV(tok, key)
	if !ok || n > 0xffffffff {
		return false
	}
	*dst = uint32(n)
	return true
}

// Block targets print as "bN" and parse back from the same form.
func targetAttr(id uint32) string { return fmt.Sprintf("b%d", id) }

func setTarget(dst *uint32, tok string) bool {
	if !strings.HasPrefix(tok, "b") {
		return false
	}
	n, err := strconv.ParseUint(tok[1:], 10, 32)
	if err != nil {
		return false
	}
	*dst = uint32(n)
	return true
}

func memAccessAttrs(a MemAccess) []string {
	return []string{a.Space.String(), a.MemType.String(), a.AddrType.String(), a.Order.String(), a.Scope.String()}
}

func setMemAccess(a *MemAccess, tok string) bool {
	return setEnum(&a.Space, MemSpaceNames, tok) ||
		setEnum(&a.MemType, MemTypeNames, tok) ||
		setEnum(&a.AddrType, MemAddrTypeNames, tok) ||
		setEnum(&a.Order, MemOrderNames, tok) ||
		setEnum(&a.Scope, MemScopeNames, tok)
}

func attrAccessAttrs(a AttrAccess) []string {
	return attrList(kvAttr("addr", uint64(a.Addr)), kvAttr("comps", uint64(a.Comps)),
		flagAttr("patch", a.Patch), flagAttr("out", a.Output))
}

func setAttrAccess(a *AttrAccess, tok string) bool {
	return setUint16(&a.Addr, tok, "addr") ||
		setUint8(&a.Comps, tok, "comps") ||
		setFlag(&a.Patch, "patch", tok) ||
		setFlag(&a.Output, "out", tok)
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

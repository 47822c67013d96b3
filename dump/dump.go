// Package dump renders decoded irep trees for inspection: an indented
// text listing and a canonical CBOR projection for tooling interchange.
package dump

import (
	"fmt"
	"io"
	"strings"

	"github.com/chazu/riteload/rite"
)

// Listing writes a human-readable rendering of the tree rooted at ir.
func Listing(w io.Writer, ir *rite.Irep) error {
	return listRecord(w, ir, 0)
}

func listRecord(w io.Writer, ir *rite.Irep, depth int) error {
	indent := strings.Repeat("  ", depth)

	_, err := fmt.Fprintf(w, "%sirep: nlocals=%d nregs=%d ilen=%d catch=%d pool=%d syms=%dB children=%d\n",
		indent, ir.NLocals, ir.NRegs, len(ir.ISeq), ir.CatchCount(),
		len(ir.Pool), len(ir.Syms), ir.ChildCount())
	if err != nil {
		return err
	}

	if len(ir.ISeq) > 0 {
		if _, err := fmt.Fprintf(w, "%s  iseq: % x\n", indent, ir.ISeq); err != nil {
			return err
		}
	}
	for i, v := range ir.Pool {
		if _, err := fmt.Fprintf(w, "%s  pool[%d] = %s (%s)\n", indent, i, v, poolTypeName(v.Type)); err != nil {
			return err
		}
	}

	for _, child := range ir.Children {
		if err := listRecord(w, child, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func poolTypeName(t rite.PoolType) string {
	switch t {
	case rite.PoolTypeStr:
		return "str"
	case rite.PoolTypeSStr:
		return "sstr"
	case rite.PoolTypeInt32:
		return "int32"
	case rite.PoolTypeInt64:
		return "int64"
	case rite.PoolTypeFloat:
		return "float"
	}
	return fmt.Sprintf("type%d", uint8(t))
}

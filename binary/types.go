// Copyright 2017 The go-interpreter Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package binary

import (
	"fmt"

	"github.com/matovitch/wasp/feature"
	"github.com/matovitch/wasp/ir"
)

func readValueType(c *Cursor) (ir.ValueType, error) {
	b, err := c.ReadByte()
	if err != nil {
		return ir.ValueType{}, err
	}
	switch b {
	case 0x7f:
		return ir.NumericValue(ir.I32), nil
	case 0x7e:
		return ir.NumericValue(ir.I64), nil
	case 0x7d:
		return ir.NumericValue(ir.F32), nil
	case 0x7c:
		return ir.NumericValue(ir.F64), nil
	case 0x7b:
		return ir.NumericValue(ir.V128), nil
	case 0x70:
		return ir.ReferenceValue(ir.BareReference(ir.Funcref)), nil
	case 0x6f:
		return ir.ReferenceValue(ir.BareReference(ir.Externref)), nil
	case 0x6d:
		return ir.ReferenceValue(ir.BareReference(ir.Exnref)), nil
	case 0x6e:
		return ir.ReferenceValue(ir.BareReference(ir.Anyref)), nil
	case 0x6c:
		return ir.ReferenceValue(ir.BareReference(ir.Eqref)), nil
	case 0x6a:
		return ir.ReferenceValue(ir.BareReference(ir.I31ref)), nil
	case 0x63, 0x64:
		ref, err := readRefType(c, b)
		if err != nil {
			return ir.ValueType{}, err
		}
		return ir.ReferenceValue(ir.GeneralReference(ref)), nil
	default:
		return ir.ValueType{}, fmt.Errorf("binary: unknown value type byte 0x%x", b)
	}
}

// readRefType reads a "ref null? <heaptype>" encoding; the leading
// byte (0x63 = non-null, 0x64 = nullable) has already been consumed.
func readRefType(c *Cursor, lead byte) (ir.RefType, error) {
	heap, err := readHeapType(c)
	if err != nil {
		return ir.RefType{}, err
	}
	null := ir.NonNull
	if lead == 0x64 {
		null = ir.Yes
	}
	return ir.RefType{Null: null, Heap: heap}, nil
}

func readHeapType(c *Cursor) (ir.HeapType, error) {
	b, ok := c.PeekByte()
	if ok {
		switch b {
		case 0x70:
			c.Advance(1)
			return ir.HeapKind(ir.Funcref), nil
		case 0x6f:
			c.Advance(1)
			return ir.HeapKind(ir.Externref), nil
		case 0x6d:
			c.Advance(1)
			return ir.HeapKind(ir.Exnref), nil
		case 0x6e:
			c.Advance(1)
			return ir.HeapKind(ir.Anyref), nil
		case 0x6c:
			c.Advance(1)
			return ir.HeapKind(ir.Eqref), nil
		case 0x6a:
			c.Advance(1)
			return ir.HeapKind(ir.I31ref), nil
		}
	}
	idx, err := c.ReadVarS32()
	if err != nil {
		return ir.HeapType{}, err
	}
	if idx < 0 {
		return ir.HeapType{}, fmt.Errorf("binary: negative heap type index %d", idx)
	}
	return ir.HeapTypeIndex(uint32(idx)), nil
}

// readReferenceType reads a table element type: a bare byte under MVP
// or a general "ref" form under the reference-types/GC proposals.
func readReferenceType(c *Cursor) (ir.ReferenceType, error) {
	b, ok := c.PeekByte()
	if !ok {
		return ir.ReferenceType{}, ErrTruncated
	}
	if b == 0x63 || b == 0x64 {
		c.Advance(1)
		ref, err := readRefType(c, b)
		if err != nil {
			return ir.ReferenceType{}, err
		}
		return ir.GeneralReference(ref), nil
	}
	c.Advance(1)
	switch b {
	case 0x70:
		return ir.BareReference(ir.Funcref), nil
	case 0x6f:
		return ir.BareReference(ir.Externref), nil
	case 0x6d:
		return ir.BareReference(ir.Exnref), nil
	case 0x6e:
		return ir.BareReference(ir.Anyref), nil
	case 0x6c:
		return ir.BareReference(ir.Eqref), nil
	case 0x6a:
		return ir.BareReference(ir.I31ref), nil
	default:
		return ir.ReferenceType{}, fmt.Errorf("binary: unknown reference type byte 0x%x", b)
	}
}

func readFunctionType(c *Cursor) (ir.FunctionType, error) {
	tag, err := c.ReadByte()
	if err != nil {
		return ir.FunctionType{}, err
	}
	if tag != 0x60 {
		return ir.FunctionType{}, fmt.Errorf("binary: expected function type tag 0x60, got 0x%x", tag)
	}
	params, err := readValueTypeVec(c)
	if err != nil {
		return ir.FunctionType{}, err
	}
	results, err := readValueTypeVec(c)
	if err != nil {
		return ir.FunctionType{}, err
	}
	return ir.FunctionType{Params: params, Results: results}, nil
}

func readValueTypeVec(c *Cursor) ([]ir.ValueType, error) {
	n, err := c.ReadVarU32()
	if err != nil {
		return nil, err
	}
	out := make([]ir.ValueType, 0, n)
	for i := uint32(0); i < n; i++ {
		v, err := readValueType(c)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func readLimits(c *Cursor, shared feature.Set) (ir.Limits, error) {
	flags, err := c.ReadByte()
	if err != nil {
		return ir.Limits{}, err
	}
	min, err := c.ReadVarU32()
	if err != nil {
		return ir.Limits{}, err
	}
	l := ir.Limits{Min: min}
	if flags&0x01 != 0 {
		l.HasMax = true
		if l.Max, err = c.ReadVarU32(); err != nil {
			return ir.Limits{}, err
		}
	}
	if flags&0x02 != 0 {
		if !shared.Has(feature.Threads) {
			return ir.Limits{}, errFeatureGated("shared memories/tables", feature.Threads)
		}
		l.Shared = ir.SharedYes
	}
	return l, nil
}

func readTableType(c *Cursor, features feature.Set) (ir.TableType, error) {
	elem, err := readReferenceType(c)
	if err != nil {
		return ir.TableType{}, err
	}
	limits, err := readLimits(c, features)
	if err != nil {
		return ir.TableType{}, err
	}
	return ir.TableType{Limits: limits, Element: elem}, nil
}

func readMemoryType(c *Cursor, features feature.Set) (ir.MemoryType, error) {
	limits, err := readLimits(c, features)
	if err != nil {
		return ir.MemoryType{}, err
	}
	return ir.MemoryType{Limits: limits}, nil
}

func readGlobalType(c *Cursor) (ir.GlobalType, error) {
	val, err := readValueType(c)
	if err != nil {
		return ir.GlobalType{}, err
	}
	mutByte, err := c.ReadByte()
	if err != nil {
		return ir.GlobalType{}, err
	}
	mut := ir.Const
	switch mutByte {
	case 0x00:
		mut = ir.Const
	case 0x01:
		mut = ir.Var
	default:
		return ir.GlobalType{}, fmt.Errorf("binary: unknown mutability byte 0x%x", mutByte)
	}
	return ir.GlobalType{Value: val, Mut: mut}, nil
}

func errFeatureGated(what string, f feature.Flag) error {
	return fmt.Errorf("binary: %s requires the %s feature to be enabled", what, f)
}

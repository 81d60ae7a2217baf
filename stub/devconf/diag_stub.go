//go:build !dbg

package devconf

// DescribeMax bounds the length of every diagnostic string.
const DescribeMax = 128

// DescribeInterface returns "" when built without the "dbg" tag.
func DescribeInterface(*InterfaceInfo) string { return "" }

// DescribePipe returns "" when built without the "dbg" tag.
func DescribePipe(*PipeInfo) string { return "" }

// DescribeDevconf returns "" when built without the "dbg" tag.
func DescribeDevconf(*Devconf) string { return "" }

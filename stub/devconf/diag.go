//go:build dbg

package devconf

import "fmt"

// DescribeMax bounds the length of every diagnostic string.
const DescribeMax = 128

const describeNull = "<null>"

func bounded(s string) string {
	if len(s) > DescribeMax-1 {
		return s[:DescribeMax-1]
	}
	return s
}

// DescribeInterface renders info as "num:<n>,alt:<a>".
func DescribeInterface(info *InterfaceInfo) string {
	if info == nil {
		return describeNull
	}
	return bounded(fmt.Sprintf("num:%d,alt:%d", info.InterfaceNumber, info.AlternateSetting))
}

// DescribePipe renders pipe as "epaddr:<hex>".
func DescribePipe(pipe *PipeInfo) string {
	if pipe == nil {
		return describeNull
	}
	return bounded(fmt.Sprintf("epaddr:%x", pipe.EndpointAddress))
}

// DescribeDevconf renders dc as "conf:<value>,intfs:<count>".
func DescribeDevconf(dc *Devconf) string {
	if dc == nil {
		return describeNull
	}
	return bounded(fmt.Sprintf("conf:%d,intfs:%d", dc.ConfigurationValue, dc.NumInterfaces()))
}

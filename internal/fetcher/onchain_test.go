package fetcher

import (
	"context"
	"testing"
)

func TestOnchainMissingConfig(t *testing.T) {
	o := NewOnchain(OnchainOptions{}, noopLogger())
	if _, err := o.Fetch(context.Background()); err == nil {
		t.Fatal("未配置 RPC 时应报错")
	}

	o = NewOnchain(OnchainOptions{RPCURL: "http://localhost"}, noopLogger())
	if _, err := o.Fetch(context.Background()); err == nil {
		t.Fatal("缺少 feed 地址应报错")
	}
}

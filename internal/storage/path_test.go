package storage

import "testing"

func TestBuildTableObjectPath(t *testing.T) {
	key, err := BuildTableObjectPath("/snapshots/ShopCore/", "Orders")
	if err != nil {
		t.Fatalf("BuildTableObjectPath() error = %v", err)
	}
	if key != "snapshots/ShopCore/Orders.parquet" {
		t.Fatalf("BuildTableObjectPath() = %q", key)
	}
}

func TestBuildTableObjectPathRejectsInvalidComponent(t *testing.T) {
	cases := [][2]string{
		{"", "Orders"},
		{"ShopCore", "../Orders"},
		{"Shop..Core", "Orders"},
		{"ShopCore//x", "Orders"},
		{"ShopCore", ""},
	}
	for _, tc := range cases {
		if _, err := BuildTableObjectPath(tc[0], tc[1]); err == nil {
			t.Fatalf("BuildTableObjectPath(%q, %q) expected error", tc[0], tc[1])
		}
	}
}

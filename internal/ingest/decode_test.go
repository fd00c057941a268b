package ingest

import "testing"

func TestDecodeFileItem(t *testing.T) {
	item, err := DecodeItemBytes([]byte(`{"kind":"file","path":"/etc/passwd","mode":"0644","owner":"root","group":"root","size":1234,"sha256":"abc"}`))
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if item.Stamp() != "" {
		t.Fatalf("expected a freshly decoded item to carry no stamp yet")
	}
}

func TestDecodePackageItem(t *testing.T) {
	item, err := DecodeItemBytes([]byte(`{"kind":"package","name":"openssl","version":"3.0.0","arch":"x86_64","vendor":"debian"}`))
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if item.Fingerprint() == 0 {
		t.Fatalf("expected a non-zero fingerprint")
	}
}

func TestDecodeKindIsCaseInsensitive(t *testing.T) {
	if _, err := DecodeItemBytes([]byte(`{"kind":"FILE","path":"/etc/hosts"}`)); err != nil {
		t.Fatalf("expected uppercase kind to decode, got: %v", err)
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	if _, err := DecodeItemBytes([]byte(`{"kind":"registry_key","name":"HKLM\\Software"}`)); err == nil {
		t.Fatalf("expected an unrecognized kind to error")
	}
}

func TestDecodeMalformedJSON(t *testing.T) {
	if _, err := DecodeItemBytes([]byte(`not json`)); err == nil {
		t.Fatalf("expected malformed JSON to error")
	}
}

package ocr

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
)

func buildMessage(body, attachmentType, attachmentName string, attachment []byte) []byte {
	var b strings.Builder
	b.WriteString("From: Clerk <clerk@example.test>\r\n")
	b.WriteString("To: intake@example.test\r\n")
	b.WriteString("Subject: licence scan\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: multipart/mixed; boundary=\"XYZ\"\r\n\r\n")
	b.WriteString("--XYZ\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(body + "\r\n")
	if attachment != nil {
		b.WriteString("--XYZ\r\n")
		b.WriteString("Content-Type: " + attachmentType + "\r\n")
		b.WriteString("Content-Disposition: attachment; filename=\"" + attachmentName + "\"\r\n")
		b.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
		b.WriteString(base64.StdEncoding.EncodeToString(attachment) + "\r\n")
	}
	b.WriteString("--XYZ--\r\n")
	return []byte(b.String())
}

func TestExtractMessageImageAttachment(t *testing.T) {
	eng := &fakeEngine{text: "DL No MH1234567890123"}
	x := NewExtractor(eng, Config{}, nil)

	raw := buildMessage("see attached", "image/png", "front.png", samplePNG(t))
	got, err := x.ExtractBytes(context.Background(), "msg.eml", raw)
	if err != nil {
		t.Fatal(err)
	}
	if got != eng.text || eng.calls != 1 {
		t.Fatalf("text=%q calls=%d", got, eng.calls)
	}
}

func TestExtractMessageTextAttachment(t *testing.T) {
	x := NewExtractor(&fakeEngine{}, Config{}, nil)
	raw := buildMessage("see attached", "text/plain", "ocr.txt", []byte("DOB: 15-06-1995"))
	got, err := x.ExtractBytes(context.Background(), "msg.eml", raw)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(got) != "DOB: 15-06-1995" {
		t.Fatalf("text=%q", got)
	}
}

func TestExtractMessageFallsBackToBody(t *testing.T) {
	eng := &fakeEngine{}
	x := NewExtractor(eng, Config{}, nil)
	raw := buildMessage("DL No MH1234567890123 DOB 15-06-1995", "", "", nil)
	got, err := x.ExtractBytes(context.Background(), "msg.eml", raw)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "MH1234567890123") || eng.calls != 0 {
		t.Fatalf("text=%q calls=%d", got, eng.calls)
	}
}

func TestHTMLTextKeepsCellsApart(t *testing.T) {
	page := `<html><head><title>x</title><style>td{}</style></head><body>
<h2>Licence status</h2>
<table>
<tr><td>DL No</td><td>MH1234567890123</td></tr>
<tr><td>DOB</td><td>15-06-1995</td></tr>
</table><script>var a = 1;</script></body></html>`

	got, err := HTMLText([]byte(page))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "DL No MH1234567890123") || !strings.Contains(got, "DOB 15-06-1995") {
		t.Fatalf("text=%q", got)
	}
	if strings.Contains(got, "MH123456789012315") || strings.Contains(got, "var a") {
		t.Fatalf("cells ran together or script kept: %q", got)
	}
}

package ofx

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBankOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>EUR
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-25.50
<FITID>2024011501
<NAME>ACME GMBH
<MEMO>RE-2024.014
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>-125.00
<FITID>2024012001
<NAME>POS PURCHASE Whole Foods Market
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

func TestParseFileBankStatement(t *testing.T) {
	parser := NewParser()

	txns, err := parser.ParseFile(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	require.Len(t, txns, 2)

	first := txns[0]
	assert.Equal(t, "2024011501", first.ID)
	assert.Equal(t, int64(-2550), first.AmountCents)
	assert.Equal(t, "EUR", first.Currency)
	assert.Equal(t, "1234567890", first.AccountID)
	assert.Equal(t, "ACME GMBH", first.Counterparty)
	assert.Equal(t, "RE-2024.014", first.Reference)
	assert.NotEmpty(t, first.Hash)
	assert.Equal(t, 2024, first.Date.Year())

	second := txns[1]
	assert.Equal(t, "Whole Foods Market", second.Counterparty)
	assert.Equal(t, int64(-12500), second.AmountCents)
}

func TestParseFileRejectsGarbage(t *testing.T) {
	parser := NewParser()
	_, err := parser.ParseFile(context.Background(), strings.NewReader("not an ofx file"))
	assert.Error(t, err)
}

func TestAmountToCents(t *testing.T) {
	tests := []struct {
		name string
		num  int64
		den  int64
		want int64
	}{
		{"whole euros", 50, 1, 5000},
		{"exact cents", -2550, 100, -2550},
		{"rounds half up", 12345, 10000, 123},
		{"rounds half away from zero", -125, 1000, -13},
		{"zero", 0, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := amountToCents(big.NewRat(tt.num, tt.den))
			assert.Equal(t, tt.want, got)
		})
	}
}

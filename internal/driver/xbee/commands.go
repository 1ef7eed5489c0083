// internal/driver/xbee/commands.go
package xbee

// Wire-level constants of the XBee AT command set
const (
	// EscapeSequence enters command mode when framed by guard time
	EscapeSequence = "+++"

	// Terminator ends every command and every response line
	Terminator byte = '\r'

	// ResponseOK is the complete success reply, terminator included
	ResponseOK = "OK\r"

	// CommandExit returns the module to transparent (data) mode
	CommandExit = "ATCN"

	// CommandWrite commits applied settings to non-volatile memory
	CommandWrite = "ATWR"

	// CommentPrefix marks a load file line that is never sent
	CommentPrefix = '#'
)

// DumpCommands are the queries issued by Dump, in output order
var DumpCommands = []string{
	"ATMY", // 16-bit source address
	"ATID", // PAN ID
	"ATDL", // destination address low
	"ATDH", // destination address high
	"ATCH", // channel
	"ATRO", // packetization timeout
	"ATRR", // XBee retries
	"ATA1", // end device association
	"ATCA", // CCA threshold
	"ATBD", // interface data rate
}

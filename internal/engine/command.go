package engine

import "strings"

// Command is the closed set of shell commands.
type Command int

const (
	CmdUnknown Command = iota
	CmdHelp
	CmdLs
	CmdCd
	CmdCat
	CmdWhoami
	CmdFortune
	CmdCowsay
	CmdUptime
	CmdWeather
	CmdBBS
	CmdMail
	CmdMessage
	CmdClear
	CmdMatrix
	CmdAnsi
	CmdExit
	CmdLogout
	CmdMan
	CmdTop
	CmdWho
	CmdPing
	CmdSocial
	CmdDate
	CmdMotd
	CmdCurl
	CmdStats
	CmdBulletins
	CmdFiles
	CmdCal
	CmdMode
)

// CommandNames lists the names completion offers, in suggestion order.
var CommandNames = []string{
	"help", "ls", "whoami", "fortune", "cowsay", "uptime", "weather", "bbs",
	"cat", "mail", "msg", "message", "clear", "matrix", "ansi", "exit", "man",
	"top", "who", "ping", "social", "date", "motd", "curl", "cd", "stats",
	"bulletins", "files", "cal", "climate", "logout", "mode",
}

var commandByName = map[string]Command{
	"help":      CmdHelp,
	"ls":        CmdLs,
	"cd":        CmdCd,
	"cat":       CmdCat,
	"whoami":    CmdWhoami,
	"fortune":   CmdFortune,
	"cowsay":    CmdCowsay,
	"uptime":    CmdUptime,
	"weather":   CmdWeather,
	"climate":   CmdWeather,
	"bbs":       CmdBBS,
	"mail":      CmdMail,
	"msg":       CmdMessage,
	"message":   CmdMessage,
	"clear":     CmdClear,
	"matrix":    CmdMatrix,
	"ansi":      CmdAnsi,
	"exit":      CmdExit,
	"logout":    CmdLogout,
	"man":       CmdMan,
	"top":       CmdTop,
	"who":       CmdWho,
	"ping":      CmdPing,
	"social":    CmdSocial,
	"date":      CmdDate,
	"motd":      CmdMotd,
	"curl":      CmdCurl,
	"stats":     CmdStats,
	"bulletins": CmdBulletins,
	"files":     CmdFiles,
	"cal":       CmdCal,
	"mode":      CmdMode,
}

// ParseCommand maps a command word to a Command, case-insensitively.
// Anything unrecognised is CmdUnknown.
func ParseCommand(s string) Command {
	if c, ok := commandByName[strings.ToLower(strings.TrimSpace(s))]; ok {
		return c
	}
	return CmdUnknown
}

func (c Command) String() string {
	for name, cmd := range commandByName {
		if cmd == c && name != "climate" && name != "msg" {
			return name
		}
	}
	return "unknown"
}

package utils

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

var (
	sessionSeq uint32
	sessionMu  sync.Mutex
	sessionRng = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// GenerateSessionID 生成回测会话ID
// 格式: bt_<yyyymmddHHMMSS>_<序号><随机后缀>，同一进程内保证唯一
func GenerateSessionID() string {
	sessionMu.Lock()
	sessionSeq++
	seq := sessionSeq
	suffix := sessionRng.Intn(10000)
	sessionMu.Unlock()

	return fmt.Sprintf("bt_%s_%d%04d",
		time.Now().Format("20060102150405"), seq, suffix)
}

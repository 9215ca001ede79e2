package util

import (
	"fmt"
	"time"
)

// FallbackAssetCode gera um código provisório para ativos criados
// inline durante a abertura de um chamado sem código informado.
func FallbackAssetCode() string {
	return fmt.Sprintf("TMP-%d", time.Now().UnixMilli())
}

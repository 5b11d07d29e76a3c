package identity

import "context"

// Provider 提供当前车队所有者标识。
// 引擎只依赖接口，测试实现可以在运行期切换所有者。
type Provider interface {
	// CurrentOwnerID returns the owner whose fleet the engine serves.
	// Empty string means no owner is selected yet.
	CurrentOwnerID(ctx context.Context) (string, error)

	// Changes signals the new owner id whenever the identity switches.
	// A nil channel is valid and means the identity never changes.
	Changes() <-chan string
}

// StaticProvider 从配置读取固定 OWNER_ID，运行期不变
type StaticProvider struct {
	ownerID string
}

var _ Provider = (*StaticProvider)(nil)

func NewStaticProvider(ownerID string) *StaticProvider {
	return &StaticProvider{ownerID: ownerID}
}

func (p *StaticProvider) CurrentOwnerID(_ context.Context) (string, error) {
	return p.ownerID, nil
}

// Changes 返回 nil：nil 通道在 select 中永远阻塞，正是“身份不变”的语义
func (p *StaticProvider) Changes() <-chan string {
	return nil
}

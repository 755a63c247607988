package contract

import (
	"context"
	"io"
)

// ArtifactID: 与 FileID 等价的持久化工件标识（语义别名）。
// 说明：工件以相对于输出根的斜杠路径表示，例如 "sub_0.csv" 或 "plate_a/sub_0.csv"。
type ArtifactID = FileID

// Writer: 将工件以流式方式持久化到目标介质，并返回实际写入位置。
// 约束：
//  1. 同一 ArtifactID 单写者；不同 ArtifactID 可并发写入；
//  2. 目标目录不存在时自动创建（幂等）；
//  3. 按字节透传，不读取/修改业务内容；
//  4. ctx 取消/超时需尽快返回；
//  5. 实现内部可对瞬时故障做有限次重试（如原子替换的 rename），
//     耗尽后将最后一次错误上抛；不做静默回退；
//  6. 不同 ArtifactID 映射到同一目标时返回 ErrPathInvalid，不得互相覆盖。
type Writer interface {
	Write(ctx context.Context, id ArtifactID, r io.Reader) (string, error)
}

// LocationPreparer: 可选扩展接口。实现方在写入任何工件前创建输出位置（幂等），
// 并返回其实际路径；即使随后没有工件写出，该位置也应存在。
type LocationPreparer interface {
	Prepare(ctx context.Context, dir ArtifactID) (string, error)
}

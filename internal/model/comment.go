// Package model はドメインモデルを定義する。
package model

import "time"

// Comment はニュース記事に対するユーザーコメントを表す。
// 作成後は不変であり、更新・削除のAPIは存在しない。
type Comment struct {
	ID        string    `json:"id"`
	NewsID    string    `json:"newsId"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

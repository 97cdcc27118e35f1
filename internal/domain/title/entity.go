package title

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Title 书目实体(目录层的一条图书记录)
// 设计说明:
// 1. 书目本身由目录模块维护(ISBN、书名、单价)
// 2. TotalCopies/AvailableCopies/IsAvailable是派生字段,
//    只允许副本台账(bookcopy.Ledger)通过全量重算写入
// 3. Price是单次借阅费用(VND),归还结算时 = Price + 罚金
type Title struct {
	ID              uint
	ISBN            string
	Name            string // 书名
	Author          string
	Publisher       string
	Price           int64 // 单次借阅费用(VND)
	Description     string
	TotalCopies     int  // 副本总数(派生)
	AvailableCopies int  // 在架副本数(派生)
	IsAvailable     bool // AvailableCopies > 0(派生)
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewTitle 创建书目(工厂方法)
// 新书目没有任何副本,计数器从0开始
func NewTitle(isbn, name, author, publisher string, price int64, description string) *Title {
	now := time.Now()
	return &Title{
		ISBN:        strings.TrimSpace(isbn),
		Name:        strings.TrimSpace(name),
		Author:      author,
		Publisher:   publisher,
		Price:       price,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ApplyCounters 写入台账重算的结果
func (t *Title) ApplyCounters(total, available int) {
	t.TotalCopies = total
	t.AvailableCopies = available
	t.IsAvailable = available > 0
	t.UpdatedAt = time.Now()
}

var nonCodeChars = regexp.MustCompile(`[^0-9A-Za-z]`)

// CodePrefix 副本编码前缀
// 规则:ISBN去掉分隔符并转大写;没有ISBN时使用"T<书目ID>"
func (t *Title) CodePrefix() string {
	prefix := strings.ToUpper(nonCodeChars.ReplaceAllString(t.ISBN, ""))
	if prefix == "" {
		prefix = "T" + strconv.FormatUint(uint64(t.ID), 10)
	}
	return prefix
}

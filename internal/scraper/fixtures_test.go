package scraper

import (
	"fmt"
	"strings"
)

const cardHTML = `<html><body>
<div class="table1"><table>
<thead><tr><th>場</th><th>締切</th></tr></thead>
<tbody>
  <tr><td><a href="/owpc/pc/race/raceindex?jcd=04"><img src="/static_extra/pc/images/text_place1_04.png" alt="平和島"></a></td></tr>
  <tr><td>1R 10:30</td><td>2R 11:02</td><td>発売終了</td></tr>
</tbody>
<tbody>
  <tr><td><a href="#"><img src="/static_extra/pc/images/logo.gif"></a></td></tr>
  <tr><td>1R 09:55</td></tr>
</tbody>
<tbody>
  <tr><td><a href="/owpc/pc/race/raceindex?jcd=12"><img src="/static_extra/pc/images/text_place1_12.png" alt="住之江"></a></td></tr>
  <tr><td>12R 20:41</td></tr>
</tbody>
</table></div>
</body></html>`

type entrantRow struct {
	reg, class, weight string
	fl                 string // "F0<br>L0<br>0.15"
	global, local      string // "6.50<br>45.00<br>60.00"
	motor              string // "23<br>35.50<br>50.25"
}

func racelistHTML(rows []entrantRow) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="table1 is-tableFixed__3rdadd"><table><thead><tr><th>枠</th></tr></thead>`)
	for i, r := range rows {
		fmt.Fprintf(&b, `<tbody class="is-fs12"><tr>
<td class="is-boatColor%d">%d</td>
<td><a href="#"><img src="/racerphoto/%s.jpg"></a></td>
<td><div class="is-fs11">%s / <span class="is-fColor1">%s</span></div><div class="is-fs18">選手 名前</div><div class="is-fs11">東京/東京<br>35歳/%s</div></td>
<td>%s</td><td>%s</td><td>%s</td><td>%s</td>
</tr><tr><td>次の行</td></tr></tbody>`, i+1, i+1, r.reg, r.reg, r.class, r.weight, r.fl, r.global, r.local, r.motor)
	}
	b.WriteString(`</table></div></body></html>`)
	return b.String()
}

func defaultEntrants() []entrantRow {
	return []entrantRow{
		{"4444", "A1", "52.0kg", "F0<br>L0<br>0.15", "6.50<br>45.00<br>60.00", "7.10<br>50.00<br>66.00", "23<br>35.50<br>50.25"},
		{"4120", "A2", "51.5kg", "F1<br>L0<br>0.17", "5.80<br>38.00<br>52.00", "5.10<br>30.00<br>41.00", "45<br>30.00<br>41.00"},
		{"5012", "B1", "53.2kg", "F0<br>L0<br>0.19", "0.00<br>0.00<br>0.00", "-<br>-<br>-", "12<br>33.00<br>44.10"},
		{"3988", "B2", "50.8kg", "F0<br>L1<br>0.20", "4.20<br>20.00<br>33.00", "4.00<br>18.00<br>30.00", "61<br>28.00<br>39.00"},
		{"4801", "A1", "52.4kg", "F0<br>L0<br>0.14", "7.30<br>55.00<br>70.00", "7.00<br>52.00<br>68.00", "07<br>40.10<br>55.50"},
		{"4650", "B1", "54.0kg", "F0<br>L0<br>0.18", "5.00<br>31.00<br>45.00", "5.50<br>33.00<br>47.00", "33<br>25.00<br>36.00"},
	}
}

// beforeInfoHTML: barco 2 larga na raia 1, barco 1 queima (F.01), barco 3 atrasa (L)
const beforeInfoHTML = `<html><body>
<div class="table1"><table class="is-w748">
<thead><tr><th>枠</th></tr></thead>
<tbody><tr><td>1</td><td>photo</td><td>選手1</td><td>52.0kg</td><td>6.75</td><td>-0.5</td></tr></tbody>
<tbody><tr><td>2</td><td>photo</td><td>選手2</td><td>51.5kg</td><td>6.80</td><td>0.0</td></tr></tbody>
<tbody><tr><td>3</td><td>photo</td><td>選手3</td><td>53.2kg</td><td>6.70</td><td>0.5</td></tr></tbody>
<tbody><tr><td>4</td><td>photo</td><td>選手4</td><td>50.8kg</td><td>6.78</td><td>-0.5</td></tr></tbody>
<tbody><tr><td>5</td><td>photo</td><td>選手5</td><td>52.4kg</td><td>6.72</td><td>-0.5</td></tr></tbody>
<tbody><tr><td>6</td><td>photo</td><td>選手6</td><td>54.0kg</td><td>&nbsp;</td><td>1.0</td></tr></tbody>
</table></div>
<div class="table1"><table class="is-w238">
<thead><tr><th>スタート展示</th></tr></thead>
<tbody>
<tr><td><div class="table1_boatImage1"><span class="table1_boatImage1Number is-type2">2</span><span class="table1_boatImage1Time">.08</span></div></td></tr>
<tr><td><div class="table1_boatImage1"><span class="table1_boatImage1Number is-type1">1</span><span class="table1_boatImage1Time is-fColor1">F.01</span></div></td></tr>
<tr><td><div class="table1_boatImage1"><span class="table1_boatImage1Number is-type3">3</span><span class="table1_boatImage1Time">L</span></div></td></tr>
<tr><td><div class="table1_boatImage1"><span class="table1_boatImage1Number is-type4">4</span><span class="table1_boatImage1Time">.12</span></div></td></tr>
<tr><td><div class="table1_boatImage1"><span class="table1_boatImage1Number is-type5">5</span><span class="table1_boatImage1Time">.05</span></div></td></tr>
<tr><td><div class="table1_boatImage1"><span class="table1_boatImage1Number is-type6">6</span><span class="table1_boatImage1Time">.15</span></div></td></tr>
</tbody>
</table></div>
<div class="weather1"><div class="weather1_body">
  <div class="weather1_bodyUnit is-direction"><p class="weather1_bodyUnitImage is-direction3"></p><div class="weather1_bodyUnitLabel"><span class="weather1_bodyUnitLabelTitle">気温</span><span class="weather1_bodyUnitLabelData">15.0℃</span></div></div>
  <div class="weather1_bodyUnit is-weather"><div class="weather1_bodyUnitLabel"><span class="weather1_bodyUnitLabelTitle">晴</span></div></div>
  <div class="weather1_bodyUnit is-wind"><div class="weather1_bodyUnitLabel"><span class="weather1_bodyUnitLabelTitle">風速</span><span class="weather1_bodyUnitLabelData">3m</span></div></div>
  <div class="weather1_bodyUnit is-windDirection"><p class="weather1_bodyUnitImage is-wind14"></p></div>
  <div class="weather1_bodyUnit is-waterTemperature"><div class="weather1_bodyUnitLabel"><span class="weather1_bodyUnitLabelTitle">水温</span><span class="weather1_bodyUnitLabelData">16.0℃</span></div></div>
</div></div>
</body></html>`

// oddsPrice é o preço sintético usado na grade: 1-2-3 => 12.3
func oddsPrice(first, second, third int) float64 {
	return float64(first*100+second*10+third) / 10
}

func others(exclude ...int) []int {
	var out []int
	for b := 1; b <= 6; b++ {
		skip := false
		for _, e := range exclude {
			if b == e {
				skip = true
			}
		}
		if !skip {
			out = append(out, b)
		}
	}
	return out
}

// oddsHTML monta a grade 20x6 do odds3t; 6-5-4 aparece como "欠場" (sem preço)
func oddsHTML() string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="contentsFrame1_inner">
<div class="table1"><p>更新</p></div>
<div class="table1"><table><thead><tr><th>1</th><th>2</th><th>3</th><th>4</th><th>5</th><th>6</th></tr></thead><tbody>`)
	for block := 0; block < 5; block++ {
		for k := 0; k < 4; k++ {
			b.WriteString("<tr>")
			for first := 1; first <= 6; first++ {
				second := others(first)[block]
				third := others(first, second)[k]
				price := fmt.Sprintf("%.1f", oddsPrice(first, second, third))
				if first == 6 && second == 5 && third == 4 {
					price = "欠場"
				}
				if k == 0 {
					fmt.Fprintf(&b, `<td rowspan="4">%d</td>`, second)
				}
				fmt.Fprintf(&b, `<td>%d</td><td class="oddsPoint">%s</td>`, third, price)
			}
			b.WriteString("</tr>")
		}
	}
	b.WriteString(`</tbody></table></div></div></body></html>`)
	return b.String()
}

// payHTML: locais 1 e 4 na mesma tabela; corrida 2 do local 1 com devolução,
// corrida 8 do local 4 ainda sem resultado
func payHTML() string {
	var b strings.Builder
	b.WriteString(`<html><body><table class="is-strited1"><thead><tr>
<th><p class="table1_areaName"><img src="/static_extra/pc/images/text_place2_01.png" alt="桐生"></p></th>
<th><p class="table1_areaName"><img src="/static_extra/pc/images/text_place2_04.png" alt="平和島"></p></th>
</tr></thead>`)
	for r := 1; r <= 12; r++ {
		b.WriteString("<tbody><tr>")
		// local 1
		if r == 2 {
			b.WriteString(`<td><span>2</span><span>-</span><span>1</span><span>-</span><span>4</span></td><td><span class="is-payout1">¥1,230</span></td><td><span>返</span></td>`)
		} else {
			b.WriteString(`<td><span>1</span><span>-</span><span>2</span><span>-</span><span>3</span></td><td><span class="is-payout1">¥500</span></td><td><span>1</span></td>`)
		}
		// local 4 (corrida 9 com dígitos full-width, corrida 10 sem valor numérico)
		switch r {
		case 7:
			b.WriteString(`<td><span>1</span><span>-</span><span>3</span><span>-</span><span>5</span></td><td><span class="is-payout1">¥740</span></td><td><span>2</span></td>`)
		case 8:
			b.WriteString(`<td></td><td></td><td></td>`)
		case 9:
			b.WriteString(`<td><span>3</span><span>-</span><span>1</span><span>-</span><span>2</span></td><td><span class="is-payout1">￥７，４００</span></td><td><span>5</span></td>`)
		case 10:
			b.WriteString(`<td><span>2</span><span>-</span><span>6</span><span>-</span><span>1</span></td><td><span class="is-payout1">特払い</span></td><td><span>1</span></td>`)
		default:
			b.WriteString(`<td><span>4</span><span>-</span><span>5</span><span>-</span><span>6</span></td><td><span class="is-payout1">¥12,340</span></td><td><span>88</span></td>`)
		}
		b.WriteString("</tr></tbody>")
	}
	b.WriteString(`</table></body></html>`)
	return b.String()
}

const noDataHTML = `<html><body><div class="l-main"><p>データがありません。</p></div></body></html>`
